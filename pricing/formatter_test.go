package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatter(t *testing.T) {
	testCases := []struct {
		name     string
		locale   string
		currency string
		position SymbolPosition
		scale    int32
		wantErr  bool
	}{
		{"us dollars", "en-US", "USD", SymbolPrefix, 2, false},
		{"lower case currency", "en", "usd", "", 2, false},
		{"euro suffix", "de-DE", "EUR", SymbolSuffix, 2, false},
		{"yen has no minor unit", "ja-JP", "JPY", SymbolPrefix, 0, false},
		{"bad locale", "not a locale!!", "USD", SymbolPrefix, 0, true},
		{"bad currency", "en-US", "ABCD", SymbolPrefix, 0, true},
		{"bad position", "en-US", "USD", "middle", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFormatter(tc.locale, tc.currency, tc.position)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.scale, f.Scale())
		})
	}
}

func TestFormatter_Format(t *testing.T) {
	usd, err := NewFormatter("en-US", "USD", SymbolPrefix)
	require.NoError(t, err)
	eur, err := NewFormatter("de-DE", "EUR", SymbolSuffix)
	require.NoError(t, err)

	testCases := []struct {
		name      string
		formatter *Formatter
		amount    string
		expected  string
	}{
		{"grouping and cents", usd, "8000", "$8,000.00"},
		{"small amount", usd, "0.5", "$0.50"},
		{"rounds half up", usd, "0.125", "$0.13"},
		{"rounds half up at the smallest unit", usd, "0.005", "$0.01"},
		{"negative amount", usd, "-5", "-$5.00"},
		{"german separators", eur, "1234.5", "1.234,50 €"},
		{"zero", eur, "0", "0,00 €"},
		{"beyond float precision", usd, "90071992547409.93", "$90,071,992,547,409.93"},
		{"beyond float precision in euros", eur, "12345678901234567.89", "12.345.678.901.234.567,89 €"},
		{"beyond int64", usd, "123456789012345678901.5", "$123,456,789,012,345,678,901.50"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.formatter.Format(decimal.RequireFromString(tc.amount)))
		})
	}
}

func TestFormatter_MatchesResolverRounding(t *testing.T) {
	f, err := NewFormatter("en-US", "USD", SymbolPrefix)
	require.NoError(t, err)
	r := newTestResolver(f.Scale())

	for _, p := range []string{"19.99", "0.05", "333.33", "12.345"} {
		res := r.Resolve(Product{ID: "1", Price: price(p)}, []Promotion{storeWide("1", DiscountPercentage, "15")})

		assert.True(t, f.Round(res.OriginalPrice).Equal(res.OriginalPrice), "price %s", p)
		assert.True(t, f.Round(res.FinalPrice).Equal(res.FinalPrice), "price %s", p)
		assert.True(t, f.Round(res.OriginalPrice).Sub(f.Round(res.FinalPrice)).Equal(f.Round(res.Savings)), "price %s", p)
	}
}

func TestFormatter_Currency(t *testing.T) {
	f, err := NewFormatter("es-CL", "clp", SymbolPrefix)
	require.NoError(t, err)

	assert.Equal(t, "CLP", f.Currency())
	assert.Equal(t, int32(0), f.Scale())
}
