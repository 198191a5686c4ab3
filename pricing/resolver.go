package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the slice of a catalog product the resolver reads.
// A nil Price means the backend sent no usable price.
type Product struct {
	ID         string
	CategoryID string
	Price      *decimal.Decimal
}

// Result is the pricing outcome for one product. It is rebuilt on every call
// and never cached.
type Result struct {
	OriginalPrice   decimal.Decimal
	FinalPrice      decimal.Decimal
	DiscountPercent int64
	Savings         decimal.Decimal
	Applied         *Promotion
}

// HasDiscount reports whether a promotion was applied.
func (r Result) HasDiscount() bool {
	return r.Applied != nil
}

// Resolver picks the single best promotion for a product and prices it.
type Resolver struct {
	clock Clock
	scale int32
}

// NewResolver builds a resolver rounding amounts to scale decimal places,
// which should be the minor-unit scale of the store currency.
func NewResolver(clock Clock, scale int32) *Resolver {
	if clock == nil {
		clock = SystemClock{}
	}
	if scale < 0 {
		scale = 0
	}
	return &Resolver{clock: clock, scale: scale}
}

// Resolve prices the product against promotions at the current time.
func (r *Resolver) Resolve(product Product, promotions []Promotion) Result {
	return r.ResolveAt(product, promotions, r.clock.Now())
}

// ResolveAt is Resolve with an explicit instant.
//
// Among active promotions whose scope matches, the winner is the one with the
// largest savings; ties go to the more specific scope, then the lowest id.
// Amounts are rounded half-up to the resolver scale and savings are derived
// from the rounded final price.
func (r *Resolver) ResolveAt(product Product, promotions []Promotion, now time.Time) Result {
	if product.Price == nil || product.Price.IsNegative() {
		return Result{
			OriginalPrice: decimal.Zero,
			FinalPrice:    decimal.Zero,
			Savings:       decimal.Zero,
		}
	}
	original := product.Price.Round(r.scale)
	result := Result{
		OriginalPrice: original,
		FinalPrice:    original,
		Savings:       decimal.Zero,
	}

	var (
		best        *Promotion
		bestFinal   decimal.Decimal
		bestSavings decimal.Decimal
	)
	for i := range promotions {
		promo := &promotions[i]
		if !promo.Valid() || !promo.ActiveAt(now) || !promo.Matches(product) {
			continue
		}
		final := promo.apply(original).Round(r.scale)
		savings := original.Sub(final)
		if best == nil || r.beats(promo, savings, best, bestSavings) {
			best, bestFinal, bestSavings = promo, final, savings
		}
	}
	if best == nil {
		return result
	}

	applied := *best
	result.FinalPrice = bestFinal
	result.Savings = bestSavings
	result.DiscountPercent = discountPercent(original, bestFinal)
	result.Applied = &applied
	return result
}

func (r *Resolver) beats(candidate *Promotion, savings decimal.Decimal, current *Promotion, currentSavings decimal.Decimal) bool {
	if c := savings.Cmp(currentSavings); c != 0 {
		return c > 0
	}
	if cs, bs := candidate.Scope.specificity(), current.Scope.specificity(); cs != bs {
		return cs > bs
	}
	return compareIDs(candidate.ID, current.ID) < 0
}

// discountPercent is round((original-final)/original*100), half-up.
func discountPercent(original, final decimal.Decimal) int64 {
	if !original.IsPositive() {
		return 0
	}
	return original.Sub(final).Shift(2).Div(original).Round(0).IntPart()
}
