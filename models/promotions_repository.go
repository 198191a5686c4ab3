package models

import (
	"context"

	"gorm.io/gorm"
)

type PromotionsRepository struct {
	db *gorm.DB
}

func NewPromotionsRepository(db *gorm.DB) *PromotionsRepository {
	return &PromotionsRepository{db: db}
}

// GetAllPromotions returns every promotion row. Window filtering is left to
// the resolver so that a cached list stays correct as time passes.
func (r *PromotionsRepository) GetAllPromotions(ctx context.Context) ([]Promotion, error) {
	var promotions []Promotion
	if err := r.db.WithContext(ctx).Order("id").Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}
