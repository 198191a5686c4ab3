package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a Result with its amounts rendered for display.
type Quote struct {
	Result
	Original string
	Final    string
	Savings  string
}

// Pricer is what views depend on: the cached promotion list, its loading
// state and a resolver bound to that list.
type Pricer struct {
	repo      *Repository
	resolver  *Resolver
	formatter *Formatter
	clock     Clock
}

func NewPricer(repo *Repository, formatter *Formatter, clock Clock) *Pricer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Pricer{
		repo:      repo,
		resolver:  NewResolver(clock, formatter.Scale()),
		formatter: formatter,
		clock:     clock,
	}
}

// Load triggers the first fetch of the promotion list if it has not happened yet.
func (p *Pricer) Load(ctx context.Context) error {
	return p.repo.Load(ctx)
}

func (p *Pricer) Reload(ctx context.Context) error {
	return p.repo.Reload(ctx)
}

// Promotions returns the raw cached list (a copy).
func (p *Pricer) Promotions() []Promotion {
	return p.repo.Get()
}

// Loading is true until the first fetch has completed, successfully or not.
// Views should re-resolve once it flips.
func (p *Pricer) Loading() bool {
	return !p.repo.IsLoaded()
}

func (p *Pricer) Loaded() bool {
	return p.repo.IsLoaded()
}

// LoadErr is the notice left by the last failed fetch, if any.
func (p *Pricer) LoadErr() error {
	return p.repo.Err()
}

// LoadedAt is the time of the last successful fetch, zero if none.
func (p *Pricer) LoadedAt() time.Time {
	return p.repo.LoadedAt()
}

// Resolve prices product against the cached list. Before the list is loaded
// this yields the undiscounted price.
func (p *Pricer) Resolve(product Product) Result {
	return p.resolver.Resolve(product, p.repo.snapshot())
}

func (p *Pricer) Quote(product Product) Quote {
	res := p.Resolve(product)
	return Quote{
		Result:   res,
		Original: p.formatter.Format(res.OriginalPrice),
		Final:    p.formatter.Format(res.FinalPrice),
		Savings:  p.formatter.Format(res.Savings),
	}
}

func (p *Pricer) Format(amount decimal.Decimal) string {
	return p.formatter.Format(amount)
}

func (p *Pricer) Currency() string {
	return p.formatter.Currency()
}

// ActiveCount is the number of well-formed promotions active right now.
func (p *Pricer) ActiveCount() int {
	now := p.clock.Now()
	n := 0
	for _, promo := range p.repo.snapshot() {
		if promo.Valid() && promo.ActiveAt(now) {
			n++
		}
	}
	return n
}
