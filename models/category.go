package models

import (
	"strconv"
	"time"
)

type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex;size:64;not null"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (c *Category) TableName() string {
	return "categories"
}

// ScopeID is the identifier category-scoped promotions use for c.
func (c Category) ScopeID() string {
	return strconv.FormatUint(uint64(c.ID), 10)
}
