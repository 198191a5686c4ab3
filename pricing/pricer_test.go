package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPricer(t *testing.T, src Source) *Pricer {
	t.Helper()
	formatter, err := NewFormatter("en-US", "USD", SymbolPrefix)
	require.NoError(t, err)
	clock := ClockFunc(func() time.Time { return testNow })
	return NewPricer(NewRepository(src, WithClock(clock)), formatter, clock)
}

func TestPricer_ResolveBeforeAndAfterLoad(t *testing.T) {
	src := SourceFunc(func(ctx context.Context) ([]Promotion, error) {
		return []Promotion{storeWide("1", DiscountPercentage, "20")}, nil
	})
	p := newTestPricer(t, src)
	product := Product{ID: "1", Price: price("100")}

	assert.True(t, p.Loading())
	before := p.Resolve(product)
	assert.False(t, before.HasDiscount())
	assertAmount(t, "100", before.FinalPrice)

	require.NoError(t, p.Load(context.Background()))

	assert.False(t, p.Loading())
	assert.True(t, p.Loaded())
	after := p.Resolve(product)
	assert.True(t, after.HasDiscount())
	assertAmount(t, "80", after.FinalPrice)
}

func TestPricer_Quote(t *testing.T) {
	src := SourceFunc(func(ctx context.Context) ([]Promotion, error) {
		return []Promotion{storeWide("1", DiscountPercentage, "20")}, nil
	})
	p := newTestPricer(t, src)
	require.NoError(t, p.Load(context.Background()))

	q := p.Quote(Product{ID: "1", Price: price("10000")})

	assert.Equal(t, "$10,000.00", q.Original)
	assert.Equal(t, "$8,000.00", q.Final)
	assert.Equal(t, "$2,000.00", q.Savings)
	assert.Equal(t, int64(20), q.DiscountPercent)
	assert.Equal(t, "USD", p.Currency())
	assert.Equal(t, "$1.50", p.Format(decimal.RequireFromString("1.5")))
}

func TestPricer_ActiveCount(t *testing.T) {
	expired := storeWide("2", DiscountPercentage, "20")
	expired.EndsAt = at(testNow.Add(-time.Hour))
	malformed := Promotion{ID: "3", Kind: "bogus", Scope: ScopeStoreWide}
	src := SourceFunc(func(ctx context.Context) ([]Promotion, error) {
		return []Promotion{storeWide("1", DiscountFixed, "5"), expired, malformed}, nil
	})
	p := newTestPricer(t, src)
	require.NoError(t, p.Load(context.Background()))

	assert.Equal(t, 1, p.ActiveCount())
	assert.Len(t, p.Promotions(), 3)
}

func TestPricer_LoadFailure(t *testing.T) {
	src := SourceFunc(func(ctx context.Context) ([]Promotion, error) {
		return nil, errors.New("promotions backend unavailable")
	})
	p := newTestPricer(t, src)

	err := p.Load(context.Background())

	assert.Error(t, err)
	assert.False(t, p.Loading())
	assert.EqualError(t, p.LoadErr(), "promotions backend unavailable")
	res := p.Resolve(Product{ID: "1", Price: price("42")})
	assertAmount(t, "42", res.FinalPrice)
	assert.Equal(t, 0, p.ActiveCount())
}

func TestPricer_LoadedAt(t *testing.T) {
	p := newTestPricer(t, SourceFunc(func(ctx context.Context) ([]Promotion, error) {
		return nil, nil
	}))
	assert.True(t, p.LoadedAt().IsZero())

	require.NoError(t, p.Load(context.Background()))

	assert.True(t, testNow.Equal(p.LoadedAt()))
	assert.NotNil(t, p.Promotions())
}
