package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Price is the base price before any promotion.
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Code        string          `gorm:"uniqueIndex;size:64;not null"`
	Name        string          `gorm:"not null;default:''"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CategoryID  uint            `gorm:"not null;index"`
	Category    Category        `gorm:"foreignKey:CategoryID"`
}

func (p *Product) TableName() string {
	return "products"
}

// ScopeID is the identifier product-scoped promotions use for p.
func (p Product) ScopeID() string {
	return strconv.FormatUint(uint64(p.ID), 10)
}

// CategoryScopeID is the identifier of p's category as promotions see it.
// It reads the foreign key so an unloaded Category association still works.
func (p Product) CategoryScopeID() string {
	return strconv.FormatUint(uint64(p.CategoryID), 10)
}
