package blocks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/xob0t/GoStorefront/pkg/schema"
	"github.com/xob0t/GoStorefront/pkg/selection"
)

type testLinks struct{}

func (testLinks) Attribute(k, v string) string { return "?toggle=" + k + ":" + v }
func (testLinks) Seller(id int64) string       { return fmt.Sprintf("?seller=%d", id) }
func (testLinks) AddToCart() string            { return "/cart/items" }
func (testLinks) Product(slug string) string   { return "/products/" + slug }
func (testLinks) QuickAdd(slug string) string  { return "/products/" + slug + "/quick-add" }
func (testLinks) Vendor(slug string) string    { return "/vendors/" + slug }
func (testLinks) Placeholder(slug string) string {
	return "/media/placeholder/" + slug + ".png"
}

func fixture(t *testing.T, seed map[string]string) (*schema.Document, *selection.Manager) {
	t.Helper()
	doc, _, err := schema.Decode([]byte(schema.ExampleJSON()))
	require.NoError(t, err)
	doc = doc.ForContext(schema.ContextPage)
	return doc, selection.New(doc, seed)
}

func ctxFor(doc *schema.Document, m *selection.Manager) Context {
	return Context{Doc: doc, State: m.State(), Links: testLinks{}, Format: DefaultFormatter()}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		key   string
		kind  Kind
		alias bool
	}{
		{"gallery", KindGallery, false},
		{"size_selector", KindVariantSelector, true},
		{"color_selector", KindVariantSelector, true},
		{"vendor_selector", KindSellerSelector, true},
		{" Add-To-Cart ", KindAddToCart, false},
		{"cart_button", KindAddToCart, true},
		{"hero_banner", KindUnknown, false},
		{"", KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			ref := Resolve(tt.key)
			assert.Equal(t, tt.kind, ref.Kind)
			assert.Equal(t, tt.alias, ref.Alias())
		})
	}

	assert.Equal(t, "hero_banner", Resolve("Hero-Banner").Key, "unknown refs keep the key")
}

func TestKindNamesRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		assert.Equal(t, k, Resolve(k.String()).Kind, k.String())
	}
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, Kinds(), r.Kinds())

	_, ok := r.Lookup(Resolve("size_selector"))
	assert.True(t, ok)
	_, ok = r.Lookup(Resolve("hero_banner"))
	assert.False(t, ok)

	assert.Error(t, r.Register(KindUnknown, func(*bytes.Buffer, Props) error { return nil }))
	assert.Error(t, r.Register(Kind(99), func(*bytes.Buffer, Props) error { return nil }))
	assert.Error(t, r.Register(KindTitle, nil))

	c := r.Clone()
	require.NoError(t, c.Register(KindTitle, func(buf *bytes.Buffer, _ Props) error {
		buf.WriteString("custom")
		return nil
	}))
	fn, _ := c.Lookup(Resolve("title"))
	var buf bytes.Buffer
	require.NoError(t, fn(&buf, TitleProps{}))
	assert.Equal(t, "custom", buf.String())

	fn, _ = r.Lookup(Resolve("title"))
	buf.Reset()
	require.NoError(t, fn(&buf, TitleProps{Title: "Tee"}))
	assert.Contains(t, buf.String(), "<h1>Tee</h1>", "the original registry is untouched")

	_, ok = NewRegistry().Lookup(Resolve("title"))
	assert.False(t, ok)
}

func TestEveryKindRenders(t *testing.T) {
	doc, m := fixture(t, map[string]string{"size": "S"})
	m.SelectSeller(9)
	reg := DefaultRegistry()

	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			ref := Ref{Kind: k, Key: k.String()}
			props := PropsFor(ref, ctxFor(doc, m))
			assert.Equal(t, k, props.Kind())

			fn, ok := reg.Lookup(ref)
			require.True(t, ok)
			var buf bytes.Buffer
			require.NoError(t, fn(&buf, props))
		})
	}
}

func TestPropsForUnknown(t *testing.T) {
	doc, m := fixture(t, nil)
	c := ctxFor(doc, m)
	p := PropsFor(Resolve("hero_banner"), c)
	u, ok := p.(UnknownProps)
	require.True(t, ok)
	assert.Equal(t, "hero_banner", u.Key)
	assert.Same(t, doc, u.Context.Doc)
}

func TestPriceProps(t *testing.T) {
	doc, m := fixture(t, nil)
	p := PropsFor(Resolve("price"), ctxFor(doc, m)).(PriceProps)
	assert.True(t, p.HasDiscount)
	assert.Contains(t, p.Effective, "22.50")
	assert.Contains(t, p.Original, "25.00")
	assert.Equal(t, "10%", p.DiscountPercent)
	assert.Equal(t, "product", p.Source)

	m.ToggleAttribute("size", "S")
	m.ToggleAttribute("color", "red")
	p = PropsFor(Resolve("price"), ctxFor(doc, m)).(PriceProps)
	assert.False(t, p.HasDiscount)
	assert.Contains(t, p.Effective, "24.00")
	assert.Empty(t, p.Original)
}

func TestVariantSelectorProps(t *testing.T) {
	doc, m := fixture(t, map[string]string{"size": "M"})
	p := PropsFor(Resolve("size_selector"), ctxFor(doc, m)).(VariantSelectorProps)

	require.Len(t, p.Options, 2)
	size, color := p.Options[0], p.Options[1]
	assert.True(t, size.Values[1].Selected)
	assert.Equal(t, "?toggle=size:M", size.Values[1].Href)

	assert.True(t, color.Values[0].Selectable)
	assert.False(t, color.Values[0].Available)
	assert.False(t, color.Values[1].Selectable)
	assert.Equal(t, []string{"Color"}, p.Missing)
	assert.False(t, p.Resolved)

	var buf bytes.Buffer
	fn, _ := DefaultRegistry().Lookup(Resolve("variant_selector"))
	require.NoError(t, fn(&buf, p))
	out := buf.String()
	assert.Contains(t, out, "Select remaining options: Color")
	assert.Contains(t, out, `aria-disabled="true">Blue</span>`)
	assert.Contains(t, out, "sold-out")
}

func TestSellerSelectorProps(t *testing.T) {
	doc, m := fixture(t, nil)
	m.SelectSeller(9)
	p := PropsFor(Resolve("vendor_selector"), ctxFor(doc, m)).(SellerSelectorProps)

	require.Len(t, p.Offers, 2)
	first, second := p.Offers[0], p.Offers[1]
	assert.True(t, first.FreeShipping)
	assert.Equal(t, "/vendors/stencil-supply", first.VendorHref)
	assert.False(t, first.Selected)

	assert.True(t, second.Selected)
	assert.True(t, second.HasDiscount)
	assert.Contains(t, second.Price, "21.00")
	assert.Contains(t, second.ShippingNote, "29.00")
	assert.Equal(t, "?seller=9", second.Href)
}

func TestStockWarningProps(t *testing.T) {
	doc, m := fixture(t, map[string]string{"size": "M", "color": "red"})
	p := PropsFor(Resolve("stock_warning"), ctxFor(doc, m)).(StockWarningProps)
	assert.False(t, p.InStock)
	assert.Equal(t, "Out of stock", p.Message)

	m.ToggleAttribute("size", "S")
	p = PropsFor(Resolve("stock_warning"), ctxFor(doc, m)).(StockWarningProps)
	assert.True(t, p.Low, "three left against a threshold of three")
	assert.Equal(t, 3, p.Quantity)

	m.ToggleAttribute("color", "blue")
	p = PropsFor(Resolve("stock_warning"), ctxFor(doc, m)).(StockWarningProps)
	assert.Empty(t, p.Message)
}

func TestAddToCartProps(t *testing.T) {
	doc, m := fixture(t, nil)
	p := PropsFor(Resolve("cart_button"), ctxFor(doc, m)).(AddToCartProps)
	assert.False(t, p.Enabled)
	assert.Equal(t, []string{"select a variant"}, p.Reasons)
	assert.Equal(t, int64(1001), p.ProductID)
	assert.Zero(t, p.VariantID)

	m.ToggleAttribute("size", "S")
	m.ToggleAttribute("color", "blue")
	m.SelectSeller(7)
	p = PropsFor(Resolve("add_to_cart"), ctxFor(doc, m)).(AddToCartProps)
	assert.True(t, p.Enabled)
	assert.Equal(t, int64(3), p.VariantID)
	assert.Equal(t, int64(7), p.SellerID)
	assert.Equal(t, "/cart/items", p.Action)
}

func TestConfigLimits(t *testing.T) {
	doc, m := fixture(t, nil)
	c := ctxFor(doc, m)

	c.Block = schema.LayoutBlock{Block: "reviews", Config: json.RawMessage(`{"limit": 1}`)}
	r := PropsFor(Resolve("reviews"), c).(ReviewsProps)
	assert.Len(t, r.Reviews, 1)
	assert.Equal(t, 2, r.Count)

	c.Block = schema.LayoutBlock{Block: "reviews", Config: json.RawMessage(`{"limit": "two"}`)}
	r = PropsFor(Resolve("reviews"), c).(ReviewsProps)
	assert.Len(t, r.Reviews, 2, "non-numeric limits are ignored")

	c.Block = schema.LayoutBlock{Block: "gallery"}
	g := PropsFor(Resolve("gallery"), c).(GalleryProps)
	assert.Equal(t, []string{"/media/placeholder/classic-tee.png"}, g.Images)

	rel := PropsFor(Resolve("related_products"), c).(RelatedProductsProps)
	require.Len(t, rel.Items, 1)
	assert.Equal(t, "/products/classic-hoodie", rel.Items[0].Href)
	assert.Equal(t, "/media/placeholder/classic-hoodie.png", rel.Items[0].Image)
	assert.Equal(t, "/products/classic-hoodie/quick-add", rel.Items[0].QuickAdd)
}

func TestDescriptionOverride(t *testing.T) {
	doc, m := fixture(t, nil)
	c := ctxFor(doc, m)
	c.Block = schema.LayoutBlock{Block: "description", Props: map[string]any{"text": "Override"}}
	assert.Equal(t, "Override", PropsFor(Resolve("description"), c).(DescriptionProps).Text)
}

func TestPropsForDoesNotMutate(t *testing.T) {
	doc, m := fixture(t, map[string]string{"size": "S"})
	before := m.State()
	PropsFor(Resolve("variant_selector"), ctxFor(doc, m))
	PropsFor(Resolve("seller_selector"), ctxFor(doc, m))
	assert.Equal(t, before, m.State())
}

func TestHidden(t *testing.T) {
	_, m := fixture(t, nil)
	st := m.State()
	assert.False(t, Hidden(KindSellerSelector, st))
	assert.False(t, Hidden(KindWarrantyInfo, st))

	st.Gates.ShowSellerSelector = false
	st.Gates.ShowWarranty = false
	assert.True(t, Hidden(KindSellerSelector, st))
	assert.True(t, Hidden(KindWarrantyInfo, st))
	assert.False(t, Hidden(KindPrice, st))
}

func TestFallbacks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderFallback(&buf, "hero_banner", false))
	assert.Empty(t, buf.String())

	require.NoError(t, RenderFallback(&buf, "hero_banner", true))
	assert.Contains(t, buf.String(), `Unknown block "hero_banner"`)

	buf.Reset()
	require.NoError(t, RenderFailed(&buf, "price", errors.New("boom"), true))
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	require.NoError(t, RenderSkeleton(&buf, schema.ContextModal))
	assert.Contains(t, buf.String(), "skeleton-modal")

	buf.Reset()
	require.NoError(t, RenderUnavailable(&buf, "Product not found"))
	assert.Contains(t, buf.String(), "Product not found")
}

func TestFormatter(t *testing.T) {
	f := DefaultFormatter()
	assert.True(t, strings.HasPrefix(f.Money(22.5), "$"))
	assert.Contains(t, f.Money(1234.5), "1,234.50")
	assert.Equal(t, "15%", f.Percent(15))
	assert.Equal(t, "4.4", f.Rating(4.4))

	unknown := NewFormatter(language.English, "zzz")
	assert.True(t, strings.HasPrefix(unknown.Money(1), "ZZZ "))
}

// PropsFor is total: no key can make it panic, and unknown keys always map to
// UnknownProps.
func TestPropsForTotalProperty(t *testing.T) {
	doc, m := fixture(t, nil)
	c := ctxFor(doc, m)

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("every key yields props of its kind", prop.ForAll(
		func(key string) bool {
			ref := Resolve(key)
			p := PropsFor(ref, c)
			return p.Kind() == ref.Kind
		},
		gen.OneGenOf(
			gen.AlphaString(),
			gen.OneConstOf("gallery", "size_selector", "cart_button", "price", "hero"),
		),
	))
	properties.TestingRun(t)
}
