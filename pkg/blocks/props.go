// props.go — Derive each block's props from the document and selection.
package blocks

import (
	"github.com/tidwall/gjson"

	"github.com/xob0t/GoStorefront/pkg/pricing"
	"github.com/xob0t/GoStorefront/pkg/schema"
	"github.com/xob0t/GoStorefront/pkg/selection"
)

// Links builds the URLs controls point at. Hosts without scripting follow
// them as plain navigation; scripted hosts intercept the click.
type Links interface {
	Attribute(key, value string) string // selection after toggling key=value
	Seller(id int64) string
	AddToCart() string
	Product(slug string) string
	QuickAdd(slug string) string
	Vendor(slug string) string
	Placeholder(slug string) string
}

// Context is everything PropsFor may read. It is assembled once per render
// from a committed selection snapshot.
type Context struct {
	Doc    *schema.Document
	State  selection.State
	Block  schema.LayoutBlock
	Links  Links
	Format *Formatter
	Dev    bool
}

// Props is the input of one fragment renderer. The set of implementations is
// closed; each kind has exactly one.
type Props interface {
	Kind() Kind
	sealed()
}

// ── Per-kind props ──

type GalleryProps struct {
	Title  string
	Images []string
}

type TitleProps struct {
	Title       string
	Brand       string
	Rating      string
	ReviewCount int
}

type PriceProps struct {
	Effective       string
	Original        string
	HasDiscount     bool
	DiscountPercent string
	Source          string
}

type BadgesProps struct {
	Badges   []string
	Discount string // empty when there is no discount
}

type ValueView struct {
	Value      string
	Label      string
	ColorHex   string
	Selected   bool
	Selectable bool
	Available  bool
	Href       string
}

type OptionView struct {
	Key    string
	Label  string
	Values []ValueView
}

type VariantSelectorProps struct {
	Options  []OptionView
	Missing  []string // labels of dimensions still without a value
	Resolved bool
	SKU      string
}

type OfferView struct {
	ID           int64
	Name         string
	VendorHref   string
	Price        string
	Original     string
	HasDiscount  bool
	Rating       string
	InStock      bool
	Selected     bool
	FreeShipping bool
	ShippingNote string
	Href         string
}

type SellerSelectorProps struct {
	Offers []OfferView
}

type StockWarningProps struct {
	Quantity int
	InStock  bool
	Low      bool
	Message  string // empty when there is nothing to warn about
}

type CampaignInfoProps struct {
	Campaigns []schema.Campaign
}

type WarrantyInfoProps struct {
	Months int
}

type ReviewsProps struct {
	Rating  string
	Count   int
	Reviews []schema.Review
}

type RelatedView struct {
	Slug     string
	Title    string
	Price    string
	Image    string
	Href     string
	QuickAdd string
}

type RelatedProductsProps struct {
	Items []RelatedView
}

type DescriptionProps struct {
	Text string
}

type AddToCartProps struct {
	Action    string
	ProductID int64
	VariantID int64
	SellerID  int64
	Price     string
	Enabled   bool
	Reasons   []string
}

// UnknownProps is handed to the fallback for keys no kind claims.
type UnknownProps struct {
	Key     string
	Context Context
}

func (GalleryProps) Kind() Kind         { return KindGallery }
func (TitleProps) Kind() Kind           { return KindTitle }
func (PriceProps) Kind() Kind           { return KindPrice }
func (BadgesProps) Kind() Kind          { return KindBadges }
func (VariantSelectorProps) Kind() Kind { return KindVariantSelector }
func (SellerSelectorProps) Kind() Kind  { return KindSellerSelector }
func (StockWarningProps) Kind() Kind    { return KindStockWarning }
func (CampaignInfoProps) Kind() Kind    { return KindCampaignInfo }
func (WarrantyInfoProps) Kind() Kind    { return KindWarrantyInfo }
func (ReviewsProps) Kind() Kind         { return KindReviews }
func (RelatedProductsProps) Kind() Kind { return KindRelatedProducts }
func (DescriptionProps) Kind() Kind     { return KindDescription }
func (AddToCartProps) Kind() Kind       { return KindAddToCart }
func (UnknownProps) Kind() Kind         { return KindUnknown }

func (GalleryProps) sealed()         {}
func (TitleProps) sealed()           {}
func (PriceProps) sealed()           {}
func (BadgesProps) sealed()          {}
func (VariantSelectorProps) sealed() {}
func (SellerSelectorProps) sealed()  {}
func (StockWarningProps) sealed()    {}
func (CampaignInfoProps) sealed()    {}
func (WarrantyInfoProps) sealed()    {}
func (ReviewsProps) sealed()         {}
func (RelatedProductsProps) sealed() {}
func (DescriptionProps) sealed()     {}
func (AddToCartProps) sealed()       {}
func (UnknownProps) sealed()         {}

// ── Resolution ──

// PropsFor derives the props of one block. It is total: every ref, known or
// not, yields a value, and it never mutates its inputs.
func PropsFor(ref Ref, c Context) Props {
	if c.Format == nil {
		c.Format = DefaultFormatter()
	}
	if c.Links == nil {
		c.Links = nopLinks{}
	}

	doc, st, f := c.Doc, c.State, c.Format
	switch ref.Kind {
	case KindGallery:
		images := doc.Product.Images
		if len(images) == 0 {
			images = []string{c.Links.Placeholder(doc.Product.Slug)}
		}
		images = limit(images, configInt(c.Block, "max"))
		return GalleryProps{Title: doc.Product.Title, Images: images}

	case KindTitle:
		return TitleProps{
			Title:       doc.Product.Title,
			Brand:       doc.Product.Brand,
			Rating:      f.Rating(doc.Product.Rating),
			ReviewCount: doc.Product.ReviewCount,
		}

	case KindPrice:
		p := PriceProps{
			Effective:   f.Money(st.Pricing.EffectivePrice),
			HasDiscount: st.Pricing.HasDiscount,
			Source:      st.Pricing.Source.String(),
		}
		if p.HasDiscount {
			p.Original = f.Money(st.Pricing.OriginalPrice)
			p.DiscountPercent = f.Percent(st.Pricing.DiscountPercent)
		}
		return p

	case KindBadges:
		p := BadgesProps{Badges: doc.Product.Badges}
		if st.Pricing.HasDiscount {
			p.Discount = "-" + f.Percent(st.Pricing.DiscountPercent)
		}
		return p

	case KindVariantSelector:
		return variantSelector(c)

	case KindSellerSelector:
		return sellerSelector(c)

	case KindStockWarning:
		return stockWarning(st.Stock)

	case KindCampaignInfo:
		return CampaignInfoProps{Campaigns: doc.Campaigns}

	case KindWarrantyInfo:
		return WarrantyInfoProps{Months: doc.Product.WarrantyMonths}

	case KindReviews:
		return ReviewsProps{
			Rating:  f.Rating(doc.Product.Rating),
			Count:   doc.Product.ReviewCount,
			Reviews: limit(doc.Reviews, configInt(c.Block, "limit")),
		}

	case KindRelatedProducts:
		related := limit(doc.Related, configInt(c.Block, "limit"))
		items := make([]RelatedView, 0, len(related))
		for _, r := range related {
			img := r.Image
			if img == "" {
				img = c.Links.Placeholder(r.Slug)
			}
			items = append(items, RelatedView{
				Slug:     r.Slug,
				Title:    r.Title,
				Price:    f.Money(r.Price),
				Image:    img,
				Href:     c.Links.Product(r.Slug),
				QuickAdd: c.Links.QuickAdd(r.Slug),
			})
		}
		return RelatedProductsProps{Items: items}

	case KindDescription:
		text := doc.Product.Description
		if s, ok := c.Block.Props["text"].(string); ok && s != "" {
			text = s
		}
		return DescriptionProps{Text: text}

	case KindAddToCart:
		p := AddToCartProps{
			Action:    c.Links.AddToCart(),
			ProductID: doc.Product.ID,
			Price:     f.Money(st.Pricing.EffectivePrice),
			Enabled:   st.Gates.CanAddToCart,
			Reasons:   st.Gates.Reasons,
		}
		if st.Variant != nil {
			p.VariantID = st.Variant.ID
		}
		if st.Seller != nil {
			p.SellerID = st.Seller.ID
		}
		return p

	default:
		return UnknownProps{Key: ref.Key, Context: c}
	}
}

func variantSelector(c Context) VariantSelectorProps {
	st := c.State
	p := VariantSelectorProps{Options: make([]OptionView, 0, len(st.Attributes))}
	for _, a := range st.Attributes {
		opt := OptionView{Key: a.Key, Label: a.Label, Values: make([]ValueView, 0, len(a.Values))}
		for _, v := range a.Values {
			opt.Values = append(opt.Values, ValueView{
				Value:      v.Value,
				Label:      v.Label,
				ColorHex:   v.ColorHex,
				Selected:   st.IsSelected(a.Key, v.Value),
				Selectable: v.Selectable,
				Available:  v.Available,
				Href:       c.Links.Attribute(a.Key, v.Value),
			})
		}
		p.Options = append(p.Options, opt)
	}
	for _, m := range st.Missing {
		p.Missing = append(p.Missing, m.Label)
	}
	if st.Variant != nil {
		p.Resolved = true
		p.SKU = st.Variant.SKU
	}
	return p
}

func sellerSelector(c Context) SellerSelectorProps {
	st, f := c.State, c.Format
	p := SellerSelectorProps{Offers: make([]OfferView, 0, len(c.Doc.Sellers))}
	for _, s := range c.Doc.Sellers {
		offer := s
		r := pricing.Resolve(c.Doc.Product, st.Variant, &offer)
		free, remaining := pricing.ShippingNote(&offer, r.EffectivePrice)

		v := OfferView{
			ID:           s.ID,
			Name:         s.VendorName,
			Price:        f.Money(r.EffectivePrice),
			HasDiscount:  r.HasDiscount,
			Rating:       f.Rating(s.Rating),
			InStock:      s.Stock > 0,
			Selected:     st.Seller != nil && st.Seller.ID == s.ID,
			FreeShipping: free,
			Href:         c.Links.Seller(s.ID),
		}
		if s.VendorSlug != "" {
			v.VendorHref = c.Links.Vendor(s.VendorSlug)
		}
		if r.HasDiscount {
			v.Original = f.Money(r.OriginalPrice)
		}
		if !free && remaining > 0 {
			v.ShippingNote = f.Money(remaining) + " more for free shipping"
		}
		p.Offers = append(p.Offers, v)
	}
	return p
}

func stockWarning(s pricing.Stock) StockWarningProps {
	p := StockWarningProps{Quantity: s.Quantity, InStock: s.InStock, Low: s.Low}
	switch {
	case !s.InStock:
		p.Message = "Out of stock"
	case s.Low:
		p.Message = "Only a few left"
	}
	return p
}

// Hidden reports whether rules suppress a block for the given snapshot.
func Hidden(kind Kind, st selection.State) bool {
	switch kind {
	case KindSellerSelector:
		return !st.Gates.ShowSellerSelector
	case KindWarrantyInfo:
		return !st.Gates.ShowWarranty
	}
	return false
}

// configInt reads an integer from the block's free-form config. Zero means
// unset.
func configInt(b schema.LayoutBlock, path string) int {
	if len(b.Config) == 0 {
		return 0
	}
	r := gjson.GetBytes(b.Config, path)
	if !r.Exists() || r.Type != gjson.Number {
		return 0
	}
	return max(int(r.Int()), 0)
}

func limit[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

type nopLinks struct{}

func (nopLinks) Attribute(string, string) string { return "" }
func (nopLinks) Seller(int64) string             { return "" }
func (nopLinks) AddToCart() string               { return "" }
func (nopLinks) Product(string) string           { return "" }
func (nopLinks) QuickAdd(string) string          { return "" }
func (nopLinks) Vendor(string) string            { return "" }
func (nopLinks) Placeholder(string) string       { return "" }
