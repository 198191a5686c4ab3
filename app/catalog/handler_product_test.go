package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytheresa/storefront-pricing/models"
	"github.com/mytheresa/storefront-pricing/pricing"
)

// --- Tests ---

func TestHandleGetProduct(t *testing.T) {
	allMockProducts := []models.Product{
		newTestProduct(1, 2, "PROD001", "clothing", "Clothing", 15.50),
		newTestProduct(100, 1, "PROD100", "shoes", "Shoes", 30.00),
		newTestProduct(300, 3, "PROD300", "accessories", "Accessories", 0),
		newTestProduct(400, 1, "PROD400", "shoes", "Shoes", 12.00),
	}
	expired := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
	promos := []pricing.Promotion{
		clothingTenPercent(),
		{ID: "2", Name: "Hat clearance", Kind: pricing.DiscountFixed, Value: decimal.NewFromInt(5), Scope: pricing.ScopeProduct, ScopeID: "300"},
		{ID: "3", Name: "Shoe bonanza", Kind: pricing.DiscountFixed, Value: decimal.NewFromInt(50), Scope: pricing.ScopeProduct, ScopeID: "400"},
		{ID: "4", Name: "January sale", Kind: pricing.DiscountPercentage, Value: decimal.NewFromInt(50), Scope: pricing.ScopeStoreWide, EndsAt: &expired},
	}

	testCases := []struct {
		name               string
		productCode        string
		mockRepoSetup      func() *MockProductRepo
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
		checkRepoCall      func(t *testing.T, repo *MockProductRepo)
	}{
		{
			name:        "Success with category promotion",
			productCode: "PROD001",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Product
				err := json.NewDecoder(rec.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, "PROD001", resp.Code)
				assertAmount(t, "15.50", resp.Price)
				assert.Equal(t, "clothing", resp.Category.Code)
				require.NotNil(t, resp.Pricing.Promotion)
				assert.Equal(t, "Clothing week", resp.Pricing.Promotion.Name)
				assert.Equal(t, "percentage", resp.Pricing.Promotion.Type)
				assertAmount(t, "13.95", resp.Pricing.Final)
				assertAmount(t, "1.55", resp.Pricing.Savings)
				assert.Equal(t, int64(10), resp.Pricing.DiscountPercent)
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, "PROD001", repo.lastCalledCode)
			},
		},
		{
			name:        "Product not found",
			productCode: "NONEXISTENT",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusNotFound,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errResp map[string]string
				err := json.NewDecoder(rec.Body).Decode(&errResp)
				assert.NoError(t, err)
				assert.Equal(t, "Product not found", errResp["error"])
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, "NONEXISTENT", repo.lastCalledCode)
			},
		},
		{
			name:        "Repository internal error",
			productCode: "PROD-ERR",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{Err: errors.New("db connection lost")}
			},
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errResp map[string]string
				err := json.NewDecoder(rec.Body).Decode(&errResp)
				assert.NoError(t, err)
				assert.Equal(t, "Failed to retrieve product", errResp["error"])
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, "PROD-ERR", repo.lastCalledCode)
			},
		},
		{
			name:        "Expired store-wide promotion is ignored",
			productCode: "PROD100",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Product
				err := json.NewDecoder(rec.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, "PROD100", resp.Code)
				assert.Nil(t, resp.Pricing.Promotion)
				assertAmount(t, "30", resp.Pricing.Final)
				assert.Equal(t, "$30.00", resp.Pricing.Formatted.Final)
				assert.Equal(t, "$0.00", resp.Pricing.Formatted.Savings)
			},
		},
		{
			name:        "Zero priced product stays at zero",
			productCode: "PROD300",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Product
				err := json.NewDecoder(rec.Body).Decode(&resp)
				assert.NoError(t, err)
				assertAmount(t, "0", resp.Pricing.Final)
				assert.Equal(t, int64(0), resp.Pricing.DiscountPercent)
			},
		},
		{
			name:        "Fixed discount larger than price floors at zero",
			productCode: "PROD400",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Product
				err := json.NewDecoder(rec.Body).Decode(&resp)
				assert.NoError(t, err)
				require.NotNil(t, resp.Pricing.Promotion)
				assertAmount(t, "0", resp.Pricing.Final)
				assertAmount(t, "12", resp.Pricing.Savings)
				assert.Equal(t, int64(100), resp.Pricing.DiscountPercent)
				assert.Equal(t, "$0.00", resp.Pricing.Formatted.Final)
			},
		},
		{
			name:        "Empty product code in path",
			productCode: "",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusNotFound,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errResp map[string]string
				err := json.NewDecoder(rec.Body).Decode(&errResp)
				assert.NoError(t, err)
				assert.Equal(t, "Product not found", errResp["error"])
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, "", repo.lastCalledCode)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := tc.mockRepoSetup()
			handler := NewCatalogHandler(mockRepo, newTestPricer(t, promos...))
			req := httptest.NewRequest("GET", "/catalog/"+tc.productCode, nil)
			req.SetPathValue("code", tc.productCode)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleGetProduct(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)

			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}

			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, mockRepo)
			}
		})
	}
}

func TestHandleGetProduct_AmountsShareOneRepresentation(t *testing.T) {
	// Arrange
	repo := &MockProductRepo{SourceProducts: []models.Product{
		newTestProduct(1, 2, "PROD001", "clothing", "Clothing", 15.50),
	}}
	handler := NewCatalogHandler(repo, newTestPricer(t, clothingTenPercent()))
	req := httptest.NewRequest("GET", "/catalog/PROD001", nil)
	req.SetPathValue("code", "PROD001")
	rec := httptest.NewRecorder()

	// Act
	handler.HandleGetProduct(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var raw struct {
		Price   any `json:"price"`
		Pricing struct {
			Original  any `json:"original"`
			Final     any `json:"final"`
			Savings   any `json:"savings"`
			Promotion struct {
				Value any `json:"value"`
			} `json:"promotion"`
		} `json:"pricing"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.Equal(t, "15.5", raw.Price)
	assert.Equal(t, "15.5", raw.Pricing.Original)
	assert.Equal(t, "13.95", raw.Pricing.Final)
	assert.Equal(t, "1.55", raw.Pricing.Savings)
	assert.Equal(t, "10", raw.Pricing.Promotion.Value)
}
