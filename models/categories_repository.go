package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrCategoryExists is returned when a category code is already taken.
var ErrCategoryExists = errors.New("category already exists")

type CategoriesRepository struct {
	db *gorm.DB
}

func NewCategoriesRepository(db *gorm.DB) *CategoriesRepository {
	return &CategoriesRepository{db: db}
}

func (r *CategoriesRepository) GetAllCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).Order("code").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory relies on the gorm TranslateError option to surface unique
// violations as gorm.ErrDuplicatedKey.
func (r *CategoriesRepository) CreateCategory(ctx context.Context, category *Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCategoryExists
		}
		return err
	}
	return nil
}
