package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeIDs(t *testing.T) {
	p := Product{ID: 42, CategoryID: 7, Category: Category{ID: 7, Code: "shoes"}}

	assert.Equal(t, "42", p.ScopeID())
	assert.Equal(t, "7", p.CategoryScopeID())
	assert.Equal(t, "7", p.Category.ScopeID())
}

func TestCategoryScopeID_WithoutPreload(t *testing.T) {
	p := Product{ID: 1, CategoryID: 3}

	assert.Equal(t, "3", p.CategoryScopeID())
	assert.Equal(t, "0", p.Category.ScopeID())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("sqlite", "file::memory:")

	assert.ErrorContains(t, err, "unsupported database driver")
}
