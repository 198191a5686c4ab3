package pricing

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind tells the resolver how a promotion's value is applied.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// ScopeKind describes which products a promotion covers.
type ScopeKind string

const (
	ScopeStoreWide ScopeKind = "store"
	ScopeCategory  ScopeKind = "category"
	ScopeProduct   ScopeKind = "product"
)

// specificity ranks scopes for tie-breaking: product beats category beats store-wide.
func (s ScopeKind) specificity() int {
	switch s {
	case ScopeProduct:
		return 2
	case ScopeCategory:
		return 1
	default:
		return 0
	}
}

// Promotion is the normalized form of a promotion record. Sources build it
// from whatever shape the backend sends; the resolver only ever sees this.
type Promotion struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Kind     DiscountKind    `json:"kind"`
	Value    decimal.Decimal `json:"value"`
	Scope    ScopeKind       `json:"scope"`
	ScopeID  string          `json:"scope_id,omitempty"`
	StartsAt *time.Time      `json:"starts_at,omitempty"`
	EndsAt   *time.Time      `json:"ends_at,omitempty"`
	Disabled bool            `json:"disabled,omitempty"`
}

// Valid reports whether the promotion carries everything needed to price a product.
func (p Promotion) Valid() bool {
	if p.Kind != DiscountPercentage && p.Kind != DiscountFixed {
		return false
	}
	if p.Value.IsNegative() {
		return false
	}
	switch p.Scope {
	case ScopeStoreWide:
		return true
	case ScopeCategory, ScopeProduct:
		return p.ScopeID != ""
	default:
		return false
	}
}

// ActiveAt reports whether t falls inside the validity window. Both bounds are
// inclusive and a nil bound is unbounded. A past end date always wins over
// the active flag.
func (p Promotion) ActiveAt(t time.Time) bool {
	if p.Disabled {
		return false
	}
	if p.StartsAt != nil && t.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && t.After(*p.EndsAt) {
		return false
	}
	return true
}

// Matches reports whether the promotion's scope covers the product.
func (p Promotion) Matches(product Product) bool {
	switch p.Scope {
	case ScopeStoreWide:
		return true
	case ScopeCategory:
		return product.CategoryID != "" && p.ScopeID == product.CategoryID
	case ScopeProduct:
		return product.ID != "" && p.ScopeID == product.ID
	default:
		return false
	}
}

var hundred = decimal.NewFromInt(100)

// apply returns the unrounded discounted price, never below zero.
func (p Promotion) apply(original decimal.Decimal) decimal.Decimal {
	var final decimal.Decimal
	switch p.Kind {
	case DiscountPercentage:
		pct := decimal.Min(decimal.Max(p.Value, decimal.Zero), hundred)
		final = original.Mul(hundred.Sub(pct)).Shift(-2)
	case DiscountFixed:
		final = original.Sub(p.Value)
	default:
		return original
	}
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// compareIDs orders identifiers numerically when both are integers and
// lexically otherwise.
func compareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
