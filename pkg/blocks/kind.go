// kind.go — Block kinds, aliases and key resolution.
package blocks

import "strings"

// Kind enumerates the block fragments the storefront knows how to render.
// KindUnknown is an explicit case: a Ref with it carries the raw key so the
// caller can render a fallback.
type Kind int

const (
	KindUnknown Kind = iota
	KindGallery
	KindTitle
	KindPrice
	KindBadges
	KindVariantSelector
	KindSellerSelector
	KindStockWarning
	KindCampaignInfo
	KindWarrantyInfo
	KindReviews
	KindRelatedProducts
	KindDescription
	KindAddToCart
)

var kindNames = map[Kind]string{
	KindGallery:         "gallery",
	KindTitle:           "title",
	KindPrice:           "price",
	KindBadges:          "badges",
	KindVariantSelector: "variant_selector",
	KindSellerSelector:  "seller_selector",
	KindStockWarning:    "stock_warning",
	KindCampaignInfo:    "campaign_info",
	KindWarrantyInfo:    "warranty_info",
	KindReviews:         "reviews",
	KindRelatedProducts: "related_products",
	KindDescription:     "description",
	KindAddToCart:       "add_to_cart",
}

// aliases map legacy or context-specific keys onto a canonical kind.
var aliases = map[string]Kind{
	"size_selector":   KindVariantSelector,
	"color_selector":  KindVariantSelector,
	"vendor_selector": KindSellerSelector,
	"product_title":   KindTitle,
	"images":          KindGallery,
	"cart_button":     KindAddToCart,
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames)+len(aliases))
	for k, name := range kindNames {
		m[name] = k
	}
	for name, k := range aliases {
		m[name] = k
	}
	return m
}()

// String returns the canonical key of k, or "unknown".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindGallery; k <= KindAddToCart; k++ {
		out = append(out, k)
	}
	return out
}

// Ref is a resolved layout block key.
type Ref struct {
	Kind Kind
	Key  string // the key as written in the layout, normalized
}

// Known reports whether the ref names a registered kind.
func (r Ref) Known() bool {
	return r.Kind != KindUnknown
}

// Alias reports whether the key was an alias rather than the canonical name.
func (r Ref) Alias() bool {
	return r.Known() && r.Key != r.Kind.String()
}

// Resolve maps a layout block key to a Ref. Matching ignores case and
// surrounding whitespace; "-" and "_" are interchangeable.
func Resolve(key string) Ref {
	n := normalize(key)
	if k, ok := byName[n]; ok {
		return Ref{Kind: k, Key: n}
	}
	return Ref{Kind: KindUnknown, Key: n}
}

func normalize(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}
