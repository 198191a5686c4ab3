package promotions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytheresa/storefront-pricing/models"
	"github.com/mytheresa/storefront-pricing/pricing"
)

// PromotionProvider is the read side of the promotions table.
type PromotionProvider interface {
	GetAllPromotions(ctx context.Context) ([]models.Promotion, error)
}

// DBSource loads promotions straight from the database, for deployments
// where the storefront shares the catalog database with the promotions admin.
type DBSource struct {
	repo PromotionProvider
}

func NewDBSource(repo PromotionProvider) *DBSource {
	return &DBSource{repo: repo}
}

func (s *DBSource) Fetch(ctx context.Context) ([]pricing.Promotion, error) {
	rows, err := s.repo.GetAllPromotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying promotions: %w", err)
	}
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = recordFromRow(row)
	}
	return NormalizeAll(ctx, records), nil
}

func recordFromRow(row models.Promotion) Record {
	active := row.Active
	rec := Record{
		ID:            ID(strconv.FormatUint(uint64(row.ID), 10)),
		Name:          row.Name,
		DiscountType:  row.DiscountType,
		DiscountValue: decimal.NewNullDecimal(row.DiscountValue),
		Active:        &active,
	}
	if row.ProductID != nil {
		rec.ProductID = ID(strconv.FormatUint(uint64(*row.ProductID), 10))
	}
	if row.CategoryID != nil {
		rec.CategoryID = ID(strconv.FormatUint(uint64(*row.CategoryID), 10))
	}
	if row.StartsAt != nil {
		rec.StartsAt = row.StartsAt.UTC().Format(time.RFC3339Nano)
	}
	if row.EndsAt != nil {
		rec.EndsAt = row.EndsAt.UTC().Format(time.RFC3339Nano)
	}
	return rec
}
