// Package pricing resolves effective price and stock across the seller,
// variant and product layers. The most specific present layer wins.
package pricing

import (
	"math"

	"github.com/xob0t/GoStorefront/pkg/schema"
)

// Layer identifies which layer of the waterfall produced a value.
type Layer int

const (
	LayerProduct Layer = iota
	LayerVariant
	LayerSeller
)

func (l Layer) String() string {
	switch l {
	case LayerSeller:
		return "seller"
	case LayerVariant:
		return "variant"
	default:
		return "product"
	}
}

// Result is the derived price of the current selection. It is recomputed on
// every selection change and never cached.
type Result struct {
	EffectivePrice  float64
	OriginalPrice   float64
	HasDiscount     bool
	DiscountPercent int
	Source          Layer
}

// Resolve applies the precedence
//
//	seller.discountPrice → seller.price → variant.price → product.discountPrice → product.price
//
// for the effective price, and seller.price → variant.price → product.price
// for the original price. A discount is reported only when the effective
// price is strictly below the original.
func Resolve(product schema.Product, variant *schema.VariantCombination, seller *schema.SellerOffer) Result {
	var r Result
	switch {
	case seller != nil:
		r.Source = LayerSeller
		r.OriginalPrice = seller.Price
		r.EffectivePrice = seller.Price
		if seller.DiscountPrice != nil {
			r.EffectivePrice = *seller.DiscountPrice
		}
	case variant != nil:
		r.Source = LayerVariant
		r.OriginalPrice = variant.Price
		r.EffectivePrice = variant.Price
	default:
		r.Source = LayerProduct
		r.OriginalPrice = product.Price
		r.EffectivePrice = product.Price
		if product.DiscountPrice != nil {
			r.EffectivePrice = *product.DiscountPrice
		}
	}

	if r.EffectivePrice < r.OriginalPrice && r.OriginalPrice > 0 {
		r.HasDiscount = true
		r.DiscountPercent = int(math.Round((r.OriginalPrice - r.EffectivePrice) / r.OriginalPrice * 100))
	}
	return r
}

// Stock is the availability of the current selection.
type Stock struct {
	Quantity int
	Layer    Layer
	InStock  bool
	Low      bool // 0 < Quantity <= threshold
}

// ResolveStock takes the lowest quantity among the seller and variant layers
// that are present, falling back to the product when neither is. A zero at
// either layer means out of stock regardless of the other; Layer names the
// layer that limits the quantity, the seller on ties.
func ResolveStock(product schema.Product, variant *schema.VariantCombination, seller *schema.SellerOffer, lowThreshold int) Stock {
	s := Stock{Layer: LayerProduct, Quantity: product.Stock}
	if variant != nil {
		s.Layer = LayerVariant
		s.Quantity = variant.Stock
	}
	if seller != nil && (variant == nil || seller.Stock <= variant.Stock) {
		s.Layer = LayerSeller
		s.Quantity = seller.Stock
	}
	s.Quantity = max(s.Quantity, 0)
	s.InStock = s.Quantity > 0
	s.Low = s.InStock && s.Quantity <= lowThreshold
	return s
}

// ShippingNote describes the shipping terms of a seller offer relative to the
// effective price.
func ShippingNote(seller *schema.SellerOffer, effective float64) (free bool, remaining float64) {
	if seller == nil {
		return false, 0
	}
	if seller.FreeShipping {
		return true, 0
	}
	if seller.ShippingThreshold == nil {
		return false, 0
	}
	remaining = *seller.ShippingThreshold - effective
	if remaining <= 0 {
		return true, 0
	}
	return false, remaining
}
