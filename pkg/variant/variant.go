// Package variant matches attribute selections against a combination table.
//
// Resolution is all-or-nothing: a variant resolves only once every declared
// dimension has a selected value. Availability is computed per value by
// tentatively applying it to the current selection and probing the table.
package variant

import "github.com/xob0t/GoStorefront/pkg/schema"

// Resolve returns the combination matching a complete selection, or nil when
// the selection is empty, partial, or names a tuple absent from the table.
// Keys in selected that are not declared dimensions are ignored. The first
// match in table order wins; duplicate tuples are rejected at decode time.
func Resolve(attrs []schema.AttributeOption, combos []schema.VariantCombination, selected map[string]string) *schema.VariantCombination {
	if len(selected) == 0 || len(attrs) == 0 {
		return nil
	}

	dims := make(map[string]string, len(attrs))
	for _, a := range attrs {
		v, ok := selected[a.Key]
		if !ok {
			return nil
		}
		dims[a.Key] = v
	}

	for i := range combos {
		c := &combos[i]
		if exactMatch(c.Attributes, dims) {
			return c
		}
	}
	return nil
}

// exactMatch reports whether attrs equals want on every key, with no extras.
func exactMatch(attrs, want map[string]string) bool {
	if len(attrs) != len(want) {
		return false
	}
	return partialMatch(attrs, want)
}

// partialMatch reports whether attrs agrees with every entry of want.
func partialMatch(attrs, want map[string]string) bool {
	for k, v := range want {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

// Count summarizes the combinations compatible with a partial selection.
type Count struct {
	Matches int // combinations agreeing with the selection
	InStock int // of those, combinations with stock > 0
	Stock   int // summed stock of the matches
}

// CountSelection counts the combinations compatible with a partial selection.
func CountSelection(combos []schema.VariantCombination, selection map[string]string) Count {
	var p Count
	for _, c := range combos {
		if !partialMatch(c.Attributes, selection) {
			continue
		}
		p.Matches++
		if c.Stock > 0 {
			p.InStock++
			p.Stock += c.Stock
		}
	}
	return p
}

// Availability returns a copy of attrs with every value's Selectable and
// Available flags recomputed for the current selection. For each value the
// selection is tentatively overridden with that value on its own key:
// Selectable means some combination matches the result, Available means one
// of those combinations is in stock. Stock is set to the in-stock total.
func Availability(attrs []schema.AttributeOption, combos []schema.VariantCombination, selected map[string]string) []schema.AttributeOption {
	out := make([]schema.AttributeOption, len(attrs))

	base := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if v, ok := selected[a.Key]; ok {
			base[a.Key] = v
		}
	}

	tentative := make(map[string]string, len(base)+1)
	for i, a := range attrs {
		opt := a
		opt.Values = make([]schema.AttributeValue, len(a.Values))

		for j, v := range a.Values {
			clear(tentative)
			for k, sv := range base {
				tentative[k] = sv
			}
			tentative[a.Key] = v.Value

			count := CountSelection(combos, tentative)
			v.Selectable = count.Matches > 0
			v.Available = count.InStock > 0
			stock := count.Stock
			v.Stock = &stock
			opt.Values[j] = v
		}
		out[i] = opt
	}
	return out
}

// Missing returns the declared dimensions that have no selected value, in
// declaration order.
func Missing(attrs []schema.AttributeOption, selected map[string]string) []schema.AttributeOption {
	var out []schema.AttributeOption
	for _, a := range attrs {
		if _, ok := selected[a.Key]; !ok {
			out = append(out, a)
		}
	}
	return out
}
