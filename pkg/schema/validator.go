// validator.go — Structural checks across the document tables.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate checks that the combination table is consistent with the declared
// attributes. A combination must cover every dimension with a declared value,
// and no two combinations may share an attribute map.
func Validate(doc *Document) error {
	var problems []error

	dims := make(map[string]AttributeOption, len(doc.Attributes))
	for _, a := range doc.Attributes {
		if _, dup := dims[a.Key]; dup {
			problems = append(problems, fmt.Errorf("attribute %q declared twice", a.Key))
			continue
		}
		dims[a.Key] = a

		seen := make(map[string]struct{}, len(a.Values))
		for _, v := range a.Values {
			if _, dup := seen[v.Value]; dup {
				problems = append(problems, fmt.Errorf("attribute %q declares value %q twice", a.Key, v.Value))
			}
			seen[v.Value] = struct{}{}
		}
	}

	tuples := make(map[string]int, len(doc.Combinations))
	for i, c := range doc.Combinations {
		for key, value := range c.Attributes {
			opt, ok := dims[key]
			if !ok {
				problems = append(problems, fmt.Errorf("combination %d names undeclared attribute %q", c.ID, key))
				continue
			}
			if !opt.Has(value) {
				problems = append(problems, fmt.Errorf("combination %d names undeclared value %q for %q", c.ID, value, key))
			}
		}
		for key := range dims {
			if _, ok := c.Attributes[key]; !ok {
				problems = append(problems, fmt.Errorf("combination %d has no value for %q", c.ID, key))
			}
		}

		tuple := TupleKey(c.Attributes)
		if prev, dup := tuples[tuple]; dup {
			problems = append(problems, fmt.Errorf("combinations %d and %d share attributes %s",
				doc.Combinations[prev].ID, c.ID, tuple))
			continue
		}
		tuples[tuple] = i
	}

	sellers := make(map[int64]struct{}, len(doc.Sellers))
	for _, s := range doc.Sellers {
		if _, dup := sellers[s.ID]; dup {
			problems = append(problems, fmt.Errorf("seller %d declared twice", s.ID))
		}
		sellers[s.ID] = struct{}{}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(problems...))
}

// LayoutWarnings reports layout oddities that rendering tolerates.
func LayoutWarnings(doc *Document) []string {
	var warnings []string

	check := func(name string, blocks []LayoutBlock) {
		seen := make(map[string]struct{}, len(blocks))
		for _, b := range blocks {
			if b.Block == "" {
				warnings = append(warnings, fmt.Sprintf("%s layout has a block without a key", name))
				continue
			}
			if _, dup := seen[b.Block]; dup {
				warnings = append(warnings, fmt.Sprintf("%s layout lists block %q more than once", name, b.Block))
			}
			seen[b.Block] = struct{}{}
		}
	}
	check("flat", doc.Layout)
	for ctx, blocks := range doc.Layouts {
		check(string(ctx), blocks)
	}

	if doc.HasVariants() && len(doc.Combinations) == 0 {
		warnings = append(warnings, "attributes declared without combinations; no variant can resolve")
	}
	return warnings
}

// TupleKey returns a canonical, order-independent key for an attribute map.
func TupleKey(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
	}
	b.WriteByte('}')
	return b.String()
}

// FormatSchema returns a human-readable summary of a document.
func FormatSchema(doc *Document) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Product: %s (id %d, %s)\n", doc.Product.Title, doc.Product.ID, doc.Product.Slug)
	fmt.Fprintf(&s, "Schema version: %s\n", doc.SchemaVersion)

	printLayout := func(name string, blocks []LayoutBlock) {
		fmt.Fprintf(&s, "\nLayout [%s]:\n", name)
		for _, b := range blocks {
			fmt.Fprintf(&s, "  %-8s %3d  %s\n", b.Position, b.Order, b.Block)
		}
	}
	if len(doc.Layout) > 0 {
		printLayout("flat", doc.Layout)
	}
	for _, ctx := range []Context{ContextPage, ContextModal} {
		if blocks, ok := doc.Layouts[ctx]; ok {
			printLayout(string(ctx), blocks)
		}
	}

	if doc.HasVariants() {
		s.WriteString("\nAttributes:\n")
		for _, a := range doc.Attributes {
			values := make([]string, 0, len(a.Values))
			for _, v := range a.Values {
				values = append(values, v.Value)
			}
			fmt.Fprintf(&s, "  %-12s %s\n", a.Key+":", strings.Join(values, ", "))
		}
		fmt.Fprintf(&s, "Combinations: %d\n", len(doc.Combinations))
	}
	fmt.Fprintf(&s, "Sellers: %d\n", len(doc.Sellers))

	r := doc.Rules
	fmt.Fprintf(&s, "\nRules:\n  requireVariantBeforeAddToCart: %t\n  allowMultiSeller: %t\n  lowStockThreshold: %d\n  showWarrantyInfo: %t\n",
		r.RequireVariantBeforeAddToCart, r.AllowMultiSeller, r.LowStockThreshold, r.ShowWarrantyInfo)
	return s.String()
}
