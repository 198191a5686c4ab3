package promotions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mytheresa/storefront-pricing/pricing"
)

// ErrMalformedRecord marks a promotion record that cannot be priced with.
var ErrMalformedRecord = errors.New("malformed promotion record")

// ID accepts identifiers sent either as JSON numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Record is a promotion as the backend sends it. Which fields are populated
// decides the discount kind and the scope; see Normalize.
type Record struct {
	ID            ID                  `json:"id"`
	Name          string              `json:"name"`
	DiscountType  string              `json:"discount_type"`
	DiscountValue decimal.NullDecimal `json:"discount_value"`
	Percentage    decimal.NullDecimal `json:"percentage"`
	Amount        decimal.NullDecimal `json:"amount"`
	ProductID     ID                  `json:"product_id"`
	CategoryID    ID                  `json:"category_id"`
	StoreWide     *bool               `json:"store_wide"`
	StartsAt      string              `json:"starts_at"`
	EndsAt        string              `json:"ends_at"`
	Active        *bool               `json:"active"`
}

// Normalize maps a loosely typed record onto a strict pricing.Promotion.
func Normalize(rec Record) (pricing.Promotion, error) {
	promo := pricing.Promotion{ID: string(rec.ID), Name: strings.TrimSpace(rec.Name)}
	if promo.ID == "" {
		return promo, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}

	kind, err := discountKind(rec)
	if err != nil {
		return promo, err
	}
	promo.Kind = kind

	value := rec.DiscountValue
	if !value.Valid {
		if kind == pricing.DiscountPercentage {
			value = rec.Percentage
		} else {
			value = rec.Amount
		}
	}
	if !value.Valid {
		return promo, fmt.Errorf("%w: promotion %s has no discount value", ErrMalformedRecord, promo.ID)
	}
	if value.Decimal.IsNegative() {
		return promo, fmt.Errorf("%w: promotion %s has a negative discount", ErrMalformedRecord, promo.ID)
	}
	promo.Value = value.Decimal

	switch {
	case rec.ProductID != "":
		promo.Scope, promo.ScopeID = pricing.ScopeProduct, string(rec.ProductID)
	case rec.CategoryID != "":
		promo.Scope, promo.ScopeID = pricing.ScopeCategory, string(rec.CategoryID)
	case rec.StoreWide == nil || *rec.StoreWide:
		promo.Scope = pricing.ScopeStoreWide
	default:
		return promo, fmt.Errorf("%w: promotion %s has no scope", ErrMalformedRecord, promo.ID)
	}

	if promo.StartsAt, err = parseBound(rec.StartsAt, false); err != nil {
		return promo, fmt.Errorf("%w: promotion %s starts_at: %v", ErrMalformedRecord, promo.ID, err)
	}
	if promo.EndsAt, err = parseBound(rec.EndsAt, true); err != nil {
		return promo, fmt.Errorf("%w: promotion %s ends_at: %v", ErrMalformedRecord, promo.ID, err)
	}
	if promo.StartsAt != nil && promo.EndsAt != nil && promo.EndsAt.Before(*promo.StartsAt) {
		return promo, fmt.Errorf("%w: promotion %s ends before it starts", ErrMalformedRecord, promo.ID)
	}

	promo.Disabled = rec.Active != nil && !*rec.Active
	return promo, nil
}

func discountKind(rec Record) (pricing.DiscountKind, error) {
	switch strings.ToLower(strings.TrimSpace(rec.DiscountType)) {
	case "percentage", "percent", "pct":
		return pricing.DiscountPercentage, nil
	case "fixed", "fixed_amount", "amount":
		return pricing.DiscountFixed, nil
	case "":
	default:
		return "", fmt.Errorf("%w: promotion %s has unknown discount type %q", ErrMalformedRecord, rec.ID, rec.DiscountType)
	}
	switch {
	case rec.Percentage.Valid:
		return pricing.DiscountPercentage, nil
	case rec.Amount.Valid:
		return pricing.DiscountFixed, nil
	}
	return "", fmt.Errorf("%w: promotion %s has no discount type", ErrMalformedRecord, rec.ID)
}

// parseBound reads RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseBound(s string, end bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// NormalizeAll keeps the records that normalize cleanly and logs the rest.
func NormalizeAll(ctx context.Context, records []Record) []pricing.Promotion {
	logger := zerolog.Ctx(ctx)
	out := make([]pricing.Promotion, 0, len(records))
	for _, rec := range records {
		promo, err := Normalize(rec)
		if err != nil {
			logger.Warn().Err(err).Str("promotion_id", string(rec.ID)).Msg("skipping promotion")
			continue
		}
		out = append(out, promo)
	}
	return out
}
