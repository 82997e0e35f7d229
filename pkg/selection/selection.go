// Package selection owns the mutable part of a composition: the selected
// attribute values and seller. Every derived value is recomputed in full on
// each change and published as one immutable State.
package selection

import (
	"maps"

	"github.com/xob0t/GoStorefront/pkg/pricing"
	"github.com/xob0t/GoStorefront/pkg/rules"
	"github.com/xob0t/GoStorefront/pkg/schema"
	"github.com/xob0t/GoStorefront/pkg/variant"
)

// State is a committed snapshot of the selection and everything derived from
// it. Blocks read States; they never see a partially recomputed one.
type State struct {
	Selected   map[string]string
	SellerID   int64
	HasSeller  bool
	Variant    *schema.VariantCombination
	Attributes []schema.AttributeOption // availability recomputed for Selected
	Missing    []schema.AttributeOption // dimensions still without a value
	Seller     *schema.SellerOffer
	Pricing    pricing.Result
	Stock      pricing.Stock
	Gates      rules.Gates
}

// IsSelected reports whether key=value is part of the selection.
func (s State) IsSelected(key, value string) bool {
	v, ok := s.Selected[key]
	return ok && v == value
}

// Manager is not safe for concurrent use; the composition engine serializes
// access.
type Manager struct {
	doc       *schema.Document
	evaluator *rules.Evaluator
	selected  map[string]string
	sellerID  int64
	hasSeller bool
	state     State
}

// New creates a manager for doc, seeded with the given attribute selection.
// Seed entries naming undeclared keys or values are dropped.
func New(doc *schema.Document, seed map[string]string) *Manager {
	return NewWithEvaluator(doc, seed, rules.NewDefaultEvaluator())
}

// NewWithEvaluator is New with a custom rule evaluator.
func NewWithEvaluator(doc *schema.Document, seed map[string]string, evaluator *rules.Evaluator) *Manager {
	m := &Manager{
		doc:       doc,
		evaluator: evaluator,
		selected:  make(map[string]string, len(doc.Attributes)),
	}
	for key, value := range seed {
		if m.declared(key, value) {
			m.selected[key] = value
		}
	}
	if !doc.Rules.AllowMultiSeller && len(doc.Sellers) > 0 {
		m.sellerID = doc.Sellers[0].ID
		m.hasSeller = true
	}
	m.recompute()
	return m
}

// State returns the committed snapshot.
func (m *Manager) State() State {
	return m.state
}

// Document returns the document the manager was built for.
func (m *Manager) Document() *schema.Document {
	return m.doc
}

// ToggleAttribute deselects key when value is already selected for it and
// selects value otherwise. Undeclared keys and values are ignored; the
// return value reports whether the selection changed.
func (m *Manager) ToggleAttribute(key, value string) bool {
	if !m.declared(key, value) {
		return false
	}
	if current, ok := m.selected[key]; ok && current == value {
		delete(m.selected, key)
	} else {
		m.selected[key] = value
	}
	m.recompute()
	return true
}

// SelectSeller makes id the selected seller. It is a no-op when the id is
// unknown, already selected, or the document pins a single implicit seller.
func (m *Manager) SelectSeller(id int64) bool {
	if !m.doc.Rules.AllowMultiSeller {
		return false
	}
	if _, ok := m.doc.Seller(id); !ok {
		return false
	}
	if m.hasSeller && m.sellerID == id {
		return false
	}
	m.sellerID = id
	m.hasSeller = true
	m.recompute()
	return true
}

// ClearSeller drops the seller layer from the waterfall.
func (m *Manager) ClearSeller() bool {
	if !m.hasSeller || !m.doc.Rules.AllowMultiSeller {
		return false
	}
	m.sellerID = 0
	m.hasSeller = false
	m.recompute()
	return true
}

// Clone returns an independent manager with the same selection, used to
// compute where a control would lead without touching the live one.
func (m *Manager) Clone() *Manager {
	c := &Manager{
		doc:       m.doc,
		evaluator: m.evaluator,
		selected:  maps.Clone(m.selected),
		sellerID:  m.sellerID,
		hasSeller: m.hasSeller,
		state:     m.state,
	}
	return c
}

func (m *Manager) declared(key, value string) bool {
	opt, ok := m.doc.Attribute(key)
	return ok && opt.Has(value)
}

// recompute derives the next State from scratch and commits it with a single
// assignment.
func (m *Manager) recompute() {
	doc := m.doc
	next := State{
		Selected:  maps.Clone(m.selected),
		SellerID:  m.sellerID,
		HasSeller: m.hasSeller,
	}

	next.Variant = variant.Resolve(doc.Attributes, doc.Combinations, m.selected)
	next.Attributes = variant.Availability(doc.Attributes, doc.Combinations, m.selected)
	next.Missing = variant.Missing(doc.Attributes, m.selected)

	if m.hasSeller {
		if s, ok := doc.Seller(m.sellerID); ok {
			next.Seller = &s
		}
	}

	next.Pricing = pricing.Resolve(doc.Product, next.Variant, next.Seller)
	next.Stock = pricing.ResolveStock(doc.Product, next.Variant, next.Seller, doc.Rules.LowStockThreshold)
	next.Gates = m.evaluator.Evaluate(rules.Input{
		Rules:       doc.Rules,
		HasVariants: doc.HasVariants(),
		Variant:     next.Variant,
		Sellers:     len(doc.Sellers),
		Pricing:     next.Pricing,
		Stock:       next.Stock,
	})

	m.state = next
}
