// Package rules turns the declarative rules of a document into the boolean
// gates consumed by the add-to-cart control and the layout.
package rules

import (
	"github.com/xob0t/GoStorefront/pkg/pricing"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

// User-facing reasons for a blocked primary action.
const (
	ReasonSelectVariant = "select a variant"
	ReasonOutOfStock    = "out of stock"
)

// Input is everything a gate may look at. It is a snapshot; gates must not
// retain or mutate it.
type Input struct {
	Rules       schema.Rules
	HasVariants bool
	Variant     *schema.VariantCombination
	Sellers     int
	Pricing     pricing.Result
	Stock       pricing.Stock
}

// Gates is the evaluated outcome.
type Gates struct {
	CanAddToCart       bool
	Reasons            []string
	ShowSellerSelector bool
	ShowWarranty       bool
	LowStock           bool
}

// Gate evaluates one rule and folds its outcome into g.
type Gate interface {
	Name() string
	Apply(in Input, g *Gates)
}

// Evaluator orchestrates gate evaluation.
type Evaluator struct {
	gates []Gate
}

// NewEvaluator constructs an evaluator with no gates.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// NewDefaultEvaluator builds an evaluator with the built-in gate set.
func NewDefaultEvaluator() *Evaluator {
	e := NewEvaluator()
	e.Register(RequireVariantGate{})
	e.Register(StockGate{})
	e.Register(SellerVisibilityGate{})
	e.Register(WarrantyVisibilityGate{})
	return e
}

// Register appends a gate.
func (e *Evaluator) Register(g Gate) {
	if g == nil {
		return
	}
	e.gates = append(e.gates, g)
}

// Evaluate runs every gate in registration order. Action is allowed unless a
// gate blocks it; visibility flags start closed and gates open them.
func (e *Evaluator) Evaluate(in Input) Gates {
	g := Gates{CanAddToCart: true}
	for _, gate := range e.gates {
		gate.Apply(in, &g)
	}
	return g
}

// Evaluate runs the default gate set.
func Evaluate(in Input) Gates {
	return defaultEvaluator.Evaluate(in)
}

var defaultEvaluator = NewDefaultEvaluator()

func block(g *Gates, reason string) {
	g.CanAddToCart = false
	g.Reasons = append(g.Reasons, reason)
}

// RequireVariantGate blocks the action until a variant resolves, when the
// document declares variants and its rules ask for it.
type RequireVariantGate struct{}

func (RequireVariantGate) Name() string { return "require_variant" }

func (RequireVariantGate) Apply(in Input, g *Gates) {
	if in.Rules.RequireVariantBeforeAddToCart && in.HasVariants && in.Variant == nil {
		block(g, ReasonSelectVariant)
	}
}

// StockGate blocks the action when the governing stock layer is empty, and
// flags low stock against the threshold.
type StockGate struct{}

func (StockGate) Name() string { return "stock" }

func (StockGate) Apply(in Input, g *Gates) {
	if !in.Stock.InStock {
		block(g, ReasonOutOfStock)
		return
	}
	g.LowStock = in.Stock.Low
}

// SellerVisibilityGate shows the seller selector only when multiple sellers
// are allowed and at least one offer exists.
type SellerVisibilityGate struct{}

func (SellerVisibilityGate) Name() string { return "seller_visibility" }

func (SellerVisibilityGate) Apply(in Input, g *Gates) {
	g.ShowSellerSelector = in.Rules.AllowMultiSeller && in.Sellers > 0
}

// WarrantyVisibilityGate mirrors showWarrantyInfo.
type WarrantyVisibilityGate struct{}

func (WarrantyVisibilityGate) Name() string { return "warranty_visibility" }

func (WarrantyVisibilityGate) Apply(in Input, g *Gates) {
	g.ShowWarranty = in.Rules.ShowWarrantyInfo
}
