package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// SymbolPosition places the currency symbol around the number.
type SymbolPosition string

const (
	SymbolPrefix SymbolPosition = "prefix"
	SymbolSuffix SymbolPosition = "suffix"
)

var ErrInvalidFormat = errors.New("invalid price format")

// Formatter renders amounts as localized currency text. Amounts are rounded
// half-up to the currency's standard scale before printing, the same rule the
// resolver uses, so rendered original, final and savings always add up.
type Formatter struct {
	printer    *message.Printer
	unit       currency.Unit
	symbol     string
	scale      int32
	position   SymbolPosition
	digits     [10]string
	decimalSep string
	groupSep   string
}

// NewFormatter builds a formatter for a BCP 47 locale and an ISO 4217 currency code.
func NewFormatter(locale, code string, position SymbolPosition) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("%w: locale %q: %v", ErrInvalidFormat, locale, err)
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("%w: currency %q: %v", ErrInvalidFormat, code, err)
	}
	switch position {
	case "":
		position = SymbolPrefix
	case SymbolPrefix, SymbolSuffix:
	default:
		return nil, fmt.Errorf("%w: symbol position %q", ErrInvalidFormat, position)
	}

	printer := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	f := &Formatter{
		printer:  printer,
		unit:     unit,
		symbol:   printer.Sprint(currency.Symbol(unit)),
		scale:    int32(scale),
		position: position,
	}
	for d := range f.digits {
		f.digits[d] = printer.Sprintf("%v", number.Decimal(d))
	}
	sample := printer.Sprintf("%v", number.Decimal(1.5, number.Scale(1)))
	f.decimalSep = strings.TrimSuffix(strings.TrimPrefix(sample, f.digits[1]), f.digits[5])
	thousand := printer.Sprintf("%v", number.Decimal(1000))
	f.groupSep = strings.TrimSuffix(strings.TrimPrefix(thousand, f.digits[1]), strings.Repeat(f.digits[0], 3))
	return f, nil
}

// Scale is the number of minor-unit digits of the currency.
func (f *Formatter) Scale() int32 {
	return f.scale
}

// Currency returns the ISO code, e.g. "EUR".
func (f *Formatter) Currency() string {
	return f.unit.String()
}

// Round applies the canonical rounding rule (half-up at currency scale).
func (f *Formatter) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(f.scale)
}

// Format prints amount from its exact decimal digits. The integer part goes
// through the locale's grouping; the fraction is spelled digit by digit.
func (f *Formatter) Format(amount decimal.Decimal) string {
	rounded := f.Round(amount)
	whole, frac, _ := strings.Cut(rounded.Abs().StringFixed(f.scale), ".")

	var digits string
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		digits = f.printer.Sprintf("%v", number.Decimal(n))
	} else {
		digits = f.groupedDigits(whole)
	}
	if frac != "" {
		digits += f.decimalSep + f.localDigits(frac)
	}

	var out string
	if f.position == SymbolSuffix {
		out = digits + " " + f.symbol
	} else {
		out = f.symbol + digits
	}
	if rounded.IsNegative() {
		return "-" + out
	}
	return out
}

// groupedDigits covers integer parts past int64 with plain groups of three.
func (f *Formatter) groupedDigits(ascii string) string {
	var b strings.Builder
	for i, r := range ascii {
		if i > 0 && (len(ascii)-i)%3 == 0 {
			b.WriteString(f.groupSep)
		}
		b.WriteString(f.digits[r-'0'])
	}
	return b.String()
}

func (f *Formatter) localDigits(ascii string) string {
	var b strings.Builder
	for _, r := range ascii {
		b.WriteString(f.digits[r-'0'])
	}
	return b.String()
}
