package selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/GoStorefront/pkg/pricing"
	"github.com/xob0t/GoStorefront/pkg/rules"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

func exampleDoc(t *testing.T) *schema.Document {
	t.Helper()
	doc, _, err := schema.Decode([]byte(schema.ExampleJSON()))
	require.NoError(t, err)
	return doc.ForContext(schema.ContextPage)
}

func availability(st State, key, value string) schema.AttributeValue {
	for _, a := range st.Attributes {
		if a.Key != key {
			continue
		}
		for _, v := range a.Values {
			if v.Value == value {
				return v
			}
		}
	}
	return schema.AttributeValue{}
}

func TestInitialState(t *testing.T) {
	m := New(exampleDoc(t), nil)
	st := m.State()

	assert.Empty(t, st.Selected)
	assert.Nil(t, st.Variant)
	assert.False(t, st.HasSeller)
	assert.Len(t, st.Missing, 2)
	assert.Equal(t, pricing.LayerProduct, st.Pricing.Source)
	assert.InDelta(t, 22.5, st.Pricing.EffectivePrice, 0.001)
	assert.False(t, st.Gates.CanAddToCart)
	assert.Equal(t, []string{rules.ReasonSelectVariant}, st.Gates.Reasons)
}

func TestToggleResolvesVariant(t *testing.T) {
	m := New(exampleDoc(t), nil)

	require.True(t, m.ToggleAttribute("size", "S"))
	st := m.State()
	assert.Nil(t, st.Variant, "partial selection")
	assert.True(t, availability(st, "color", "red").Available)
	assert.True(t, availability(st, "color", "blue").Available)

	require.True(t, m.ToggleAttribute("color", "blue"))
	st = m.State()
	require.NotNil(t, st.Variant)
	assert.Equal(t, int64(3), st.Variant.ID)
	assert.Equal(t, 26.0, st.Pricing.EffectivePrice)
	assert.True(t, st.Gates.CanAddToCart)
	assert.Empty(t, st.Missing)
}

func TestScenarioMediumIsOutOfStock(t *testing.T) {
	m := New(exampleDoc(t), nil)
	m.ToggleAttribute("size", "M")

	st := m.State()
	red := availability(st, "color", "red")
	blue := availability(st, "color", "blue")
	assert.True(t, red.Selectable)
	assert.False(t, red.Available)
	assert.False(t, blue.Selectable)

	m.ToggleAttribute("color", "red")
	st = m.State()
	require.NotNil(t, st.Variant)
	assert.False(t, st.Stock.InStock)
	assert.False(t, st.Gates.CanAddToCart)
	assert.Contains(t, st.Gates.Reasons, rules.ReasonOutOfStock)
	assert.True(t, availability(st, "size", "M").Selectable, "M stays selectable; the stock warning explains instead")
}

func TestToggleDeselects(t *testing.T) {
	m := New(exampleDoc(t), nil)
	m.ToggleAttribute("size", "S")
	m.ToggleAttribute("size", "S")
	assert.Empty(t, m.State().Selected)

	m.ToggleAttribute("size", "S")
	m.ToggleAttribute("size", "M")
	assert.Equal(t, map[string]string{"size": "M"}, m.State().Selected, "another value replaces")
}

func TestToggleUnknownIsNoop(t *testing.T) {
	m := New(exampleDoc(t), nil)
	before := m.State()

	assert.False(t, m.ToggleAttribute("fit", "slim"))
	assert.False(t, m.ToggleAttribute("size", "XXL"))
	if diff := cmp.Diff(before, m.State()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
}

func TestSeedDropsUndeclared(t *testing.T) {
	m := New(exampleDoc(t), map[string]string{"size": "M", "color": "red", "fit": "slim", "utm": "x"})
	assert.Equal(t, map[string]string{"size": "M", "color": "red"}, m.State().Selected)
	require.NotNil(t, m.State().Variant)
	assert.Equal(t, int64(2), m.State().Variant.ID)
}

func TestSelectSeller(t *testing.T) {
	m := New(exampleDoc(t), map[string]string{"size": "S", "color": "red"})
	assert.Equal(t, pricing.LayerVariant, m.State().Pricing.Source)

	assert.False(t, m.SelectSeller(404))
	require.True(t, m.SelectSeller(9))
	st := m.State()
	require.NotNil(t, st.Seller)
	assert.Equal(t, "Corner Shop", st.Seller.VendorName)
	assert.Equal(t, 21.0, st.Pricing.EffectivePrice)
	assert.True(t, st.Pricing.HasDiscount)
	assert.Equal(t, pricing.LayerSeller, st.Stock.Layer)
	assert.True(t, st.Gates.LowStock)
	assert.Equal(t, int64(1), st.Variant.ID, "seller changes do not touch the variant")

	assert.False(t, m.SelectSeller(9), "already selected")
	require.True(t, m.ClearSeller())
	assert.Nil(t, m.State().Seller)
}

func TestSellerDoesNotRestockVariant(t *testing.T) {
	m := New(exampleDoc(t), map[string]string{"size": "M", "color": "red"})
	require.NotNil(t, m.State().Variant)
	assert.False(t, m.State().Gates.CanAddToCart)

	require.True(t, m.SelectSeller(7))
	st := m.State()
	assert.Equal(t, "TEE-M-RED", st.Variant.SKU)
	assert.Zero(t, st.Stock.Quantity)
	assert.Equal(t, pricing.LayerVariant, st.Stock.Layer)
	assert.False(t, st.Gates.CanAddToCart)
	assert.Contains(t, st.Gates.Reasons, rules.ReasonOutOfStock)
}

func TestSingleSellerOutOfStockVariant(t *testing.T) {
	doc := exampleDoc(t)
	doc.Rules.AllowMultiSeller = false

	m := New(doc, map[string]string{"size": "M", "color": "red"})
	st := m.State()
	require.NotNil(t, st.Seller, "the implicit seller is always selected")
	assert.False(t, st.Gates.CanAddToCart)
	assert.Equal(t, []string{rules.ReasonOutOfStock}, st.Gates.Reasons)
}

func TestSingleSellerIsImplicit(t *testing.T) {
	doc := exampleDoc(t)
	doc.Rules.AllowMultiSeller = false

	m := New(doc, nil)
	st := m.State()
	require.NotNil(t, st.Seller)
	assert.Equal(t, int64(7), st.Seller.ID)
	assert.False(t, st.Gates.ShowSellerSelector)
	assert.False(t, m.SelectSeller(9))
	assert.False(t, m.ClearSeller())
}

func TestCloneIsIndependent(t *testing.T) {
	m := New(exampleDoc(t), nil)
	c := m.Clone()
	c.ToggleAttribute("size", "S")

	assert.Empty(t, m.State().Selected)
	assert.Equal(t, map[string]string{"size": "S"}, c.State().Selected)
}

func TestStateSnapshotIsDetached(t *testing.T) {
	m := New(exampleDoc(t), nil)
	st := m.State()
	m.ToggleAttribute("size", "S")
	assert.Empty(t, st.Selected, "an earlier snapshot must not observe later toggles")
	assert.True(t, m.State().IsSelected("size", "S"))
}

// toggle(k, v) twice from a state where k is unselected restores the
// variant and availability exactly.
func TestToggleTwiceProperty(t *testing.T) {
	doc := exampleDoc(t)
	type pick struct{ key, value string }
	var picks []pick
	for _, a := range doc.Attributes {
		for _, v := range a.Values {
			picks = append(picks, pick{a.Key, v.Value})
		}
	}

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("double toggle restores derived state", prop.ForAll(
		func(seedIdx, toggleIdx int) bool {
			seed := map[string]string{}
			if seedIdx < len(picks) {
				seed[picks[seedIdx].key] = picks[seedIdx].value
			}
			p := picks[toggleIdx]
			if _, taken := seed[p.key]; taken {
				return true
			}

			m := New(doc, seed)
			before := m.State()
			m.ToggleAttribute(p.key, p.value)
			m.ToggleAttribute(p.key, p.value)
			after := m.State()

			return cmp.Equal(before.Variant, after.Variant) &&
				cmp.Equal(before.Attributes, after.Attributes) &&
				cmp.Equal(before.Selected, after.Selected)
		},
		gen.IntRange(0, len(picks)),
		gen.IntRange(0, len(picks)-1),
	))
	properties.TestingRun(t)
}
