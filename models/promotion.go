package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is a row of the promotions table. A nil ProductID and CategoryID
// means the promotion is store-wide; nil bounds leave the window open.
type Promotion struct {
	ID            uint            `gorm:"primaryKey"`
	Name          string          `gorm:"not null"`
	DiscountType  string          `gorm:"size:20;not null"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ProductID     *uint           `gorm:"index"`
	CategoryID    *uint           `gorm:"index"`
	StartsAt      *time.Time      `gorm:"index"`
	EndsAt        *time.Time      `gorm:"index"`
	Active        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Promotion) TableName() string {
	return "promotions"
}
