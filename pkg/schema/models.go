// Package schema defines the product layout document the storefront composes
// pages from: layout blocks, attribute tables, variant combinations, seller
// offers and the rules that gate the primary action.
package schema

import "encoding/json"

// Context selects which block subset a document carries.
type Context string

const (
	ContextPage  Context = "page"
	ContextModal Context = "modal"
)

// Valid reports whether c is a known context.
func (c Context) Valid() bool {
	return c == ContextPage || c == ContextModal
}

// Position is the layout region a block renders in.
type Position string

const (
	PositionMain    Position = "main"
	PositionSidebar Position = "sidebar"
	PositionBottom  Position = "bottom"
)

// Positions lists the layout regions in render order.
var Positions = []Position{PositionMain, PositionSidebar, PositionBottom}

// ── Document ──

// Document is the top-level structure returned by the schema API.
// It is immutable once decoded.
type Document struct {
	SchemaVersion string                    `json:"schemaVersion"`
	Context       Context                   `json:"context,omitempty"`
	Product       Product                   `json:"product"`
	Layout        []LayoutBlock             `json:"layout,omitempty"`
	Layouts       map[Context][]LayoutBlock `json:"layouts,omitempty"` // catalog-side form, one layout per context
	Attributes    []AttributeOption         `json:"attributes,omitempty"`
	Combinations  []VariantCombination      `json:"combinations,omitempty"`
	Sellers       []SellerOffer             `json:"sellers,omitempty"`
	Rules         Rules                     `json:"rules"`
	Campaigns     []Campaign                `json:"campaigns,omitempty"`
	Reviews       []Review                  `json:"reviews,omitempty"`
	Related       []RelatedProduct          `json:"related,omitempty"`
}

// HasVariants reports whether the document declares attribute dimensions.
func (d *Document) HasVariants() bool {
	return len(d.Attributes) > 0
}

// Attribute returns the attribute option with the given key.
func (d *Document) Attribute(key string) (AttributeOption, bool) {
	for _, a := range d.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return AttributeOption{}, false
}

// Seller returns the seller offer with the given id.
func (d *Document) Seller(id int64) (SellerOffer, bool) {
	for _, s := range d.Sellers {
		if s.ID == id {
			return s, true
		}
	}
	return SellerOffer{}, false
}

// Combination returns the variant combination with the given id.
func (d *Document) Combination(id int64) (VariantCombination, bool) {
	for _, c := range d.Combinations {
		if c.ID == id {
			return c, true
		}
	}
	return VariantCombination{}, false
}

// ForContext returns a shallow copy whose Layout holds the block subset for
// ctx. Documents that already carry a flat layout are returned unchanged.
func (d *Document) ForContext(ctx Context) *Document {
	out := *d
	if blocks, ok := d.Layouts[ctx]; ok {
		out.Layout = blocks
	}
	out.Layouts = nil
	out.Context = ctx
	return &out
}

// ── Product ──

// Product is the base layer of the pricing waterfall.
type Product struct {
	ID             int64    `json:"id"`
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Brand          string   `json:"brand,omitempty"`
	Description    string   `json:"description,omitempty"`
	Price          float64  `json:"price"`
	DiscountPrice  *float64 `json:"discountPrice,omitempty"`
	Stock          int      `json:"stock"`
	Currency       string   `json:"currency,omitempty"`
	Images         []string `json:"images,omitempty"`
	Badges         []string `json:"badges,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	ReviewCount    int      `json:"reviewCount,omitempty"`
	WarrantyMonths int      `json:"warrantyMonths,omitempty"`
}

// ── Layout ──

// LayoutBlock places one fragment in the page. Block may name a key the
// registry does not know; rendering degrades gracefully in that case.
type LayoutBlock struct {
	Block    string          `json:"block"`
	Position Position        `json:"position,omitempty"` // empty = main
	Order    int             `json:"order"`
	Config   json.RawMessage `json:"config,omitempty"`
	Props    map[string]any  `json:"props,omitempty"`
}

// ── Variants ──

// AttributeOption is one selectable dimension such as size or color.
type AttributeOption struct {
	Key    string           `json:"key"`
	Label  string           `json:"label"`
	Values []AttributeValue `json:"values"`
}

// AttributeValue is one value of a dimension. Available and Selectable are
// recomputed against the current selection; the decoded values are ignored.
type AttributeValue struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Available  bool   `json:"available"`
	Selectable bool   `json:"selectable"`
	ColorHex   string `json:"colorHex,omitempty"`
	Stock      *int   `json:"stock,omitempty"`
}

// Has reports whether value is declared for this option.
func (a AttributeOption) Has(value string) bool {
	for _, v := range a.Values {
		if v.Value == value {
			return true
		}
	}
	return false
}

// VariantCombination is one purchasable attribute tuple. Its full attribute
// map identifies it uniquely within a document.
type VariantCombination struct {
	ID         int64             `json:"id"`
	SKU        string            `json:"sku,omitempty"`
	Attributes map[string]string `json:"attributes"`
	Price      float64           `json:"price"`
	Stock      int               `json:"stock"`
}

// ── Sellers ──

// SellerOffer is one vendor's offer for the product.
type SellerOffer struct {
	ID                int64    `json:"id"`
	VendorName        string   `json:"vendorName"`
	VendorSlug        string   `json:"vendorSlug,omitempty"`
	Price             float64  `json:"price"`
	DiscountPrice     *float64 `json:"discountPrice,omitempty"`
	Stock             int      `json:"stock"`
	Rating            float64  `json:"rating,omitempty"`
	FreeShipping      bool     `json:"freeShipping"`
	ShippingThreshold *float64 `json:"shippingThreshold,omitempty"`
}

// ── Rules ──

// Rules gate the primary action. Omitted fields take the defaults of
// DefaultRules.
type Rules struct {
	RequireVariantBeforeAddToCart bool `json:"requireVariantBeforeAddToCart"`
	AllowMultiSeller              bool `json:"allowMultiSeller"`
	LowStockThreshold             int  `json:"lowStockThreshold"`
	ShowWarrantyInfo              bool `json:"showWarrantyInfo"`
}

// DefaultRules returns the rules applied when a document omits them.
func DefaultRules() Rules {
	return Rules{
		RequireVariantBeforeAddToCart: true,
		AllowMultiSeller:              true,
		LowStockThreshold:             5,
		ShowWarrantyInfo:              true,
	}
}

// UnmarshalJSON applies DefaultRules to fields missing from the payload.
func (r *Rules) UnmarshalJSON(data []byte) error {
	var raw struct {
		RequireVariantBeforeAddToCart *bool `json:"requireVariantBeforeAddToCart"`
		AllowMultiSeller              *bool `json:"allowMultiSeller"`
		LowStockThreshold             *int  `json:"lowStockThreshold"`
		ShowWarrantyInfo              *bool `json:"showWarrantyInfo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = DefaultRules()
	if raw.RequireVariantBeforeAddToCart != nil {
		r.RequireVariantBeforeAddToCart = *raw.RequireVariantBeforeAddToCart
	}
	if raw.AllowMultiSeller != nil {
		r.AllowMultiSeller = *raw.AllowMultiSeller
	}
	if raw.LowStockThreshold != nil {
		r.LowStockThreshold = max(*raw.LowStockThreshold, 0)
	}
	if raw.ShowWarrantyInfo != nil {
		r.ShowWarrantyInfo = *raw.ShowWarrantyInfo
	}
	return nil
}

// ── Presentational collaborators ──

// Campaign is a promotion shown by the campaign_info block.
type Campaign struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Details string `json:"details,omitempty"`
	EndsAt  string `json:"endsAt,omitempty"`
}

// Review is one customer review.
type Review struct {
	Author  string  `json:"author"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
	Date    string  `json:"date,omitempty"`
}

// RelatedProduct is a teaser linking to another product page.
type RelatedProduct struct {
	Slug  string  `json:"slug"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
}
