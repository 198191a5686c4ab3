package catalog

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mytheresa/storefront-pricing/app/render"
	"github.com/mytheresa/storefront-pricing/models"
	"github.com/mytheresa/storefront-pricing/pricing"
)

type Response struct {
	Total             int       `json:"total"`
	PromotionsLoading bool      `json:"promotions_loading"`
	Products          []Product `json:"products"`
}

type OffersResponse struct {
	Total             int       `json:"total"`
	ActivePromotions  int       `json:"active_promotions"`
	PromotionsLoading bool      `json:"promotions_loading"`
	Products          []Product `json:"products"`
}

type Category struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Product struct {
	Code        string          `json:"code"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Pricing     Pricing         `json:"pricing"`
}

// Pricing carries the promotion outcome for one product. Amounts, like
// Product.Price, are exact decimals serialized as JSON strings; Formatted holds
// the same amounts as display text.
type Pricing struct {
	Original        decimal.Decimal `json:"original"`
	Final           decimal.Decimal `json:"final"`
	DiscountPercent int64           `json:"discount_percent"`
	Savings         decimal.Decimal `json:"savings"`
	Promotion       *Promotion      `json:"promotion,omitempty"`
	Formatted       Formatted       `json:"formatted"`
}

type Promotion struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
	Scope string          `json:"scope"`
}

type Formatted struct {
	Original string `json:"original"`
	Final    string `json:"final"`
	Savings  string `json:"savings"`
}

type ProductProvider interface {
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	GetFilteredProducts(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error)
	GetByCode(ctx context.Context, code string) (*models.Product, error)
}

// PriceQuoter is the slice of *pricing.Pricer the catalog views use.
type PriceQuoter interface {
	Quote(product pricing.Product) pricing.Quote
	Loading() bool
	ActiveCount() int
}

type CatalogHandler struct {
	repo   ProductProvider
	pricer PriceQuoter
}

func NewCatalogHandler(r ProductProvider, p PriceQuoter) *CatalogHandler {
	return &CatalogHandler{
		repo:   r,
		pricer: p,
	}
}

func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	// Parse pagination query params
	offset := 0
	limit := 10

	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}

	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			if l < 1 {
				limit = 1
			} else if l > 100 {
				limit = 100
			} else {
				limit = l
			}
		}
	}

	// Parse filters
	categoryCode := r.URL.Query().Get("category")

	var priceFilter *float64
	if priceStr := r.URL.Query().Get("price_lt"); priceStr != "" {
		if val, err := strconv.ParseFloat(priceStr, 64); err == nil {
			priceFilter = &val
		}
	}

	filters := models.ProductFilters{
		CategoryCode:  categoryCode,
		PriceLessThan: priceFilter,
	}

	res, total, err := h.repo.GetFilteredProducts(r.Context(), offset, limit, filters)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("listing products")
		render.Error(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	products := make([]Product, len(res))
	for i, p := range res {
		products[i] = h.toProduct(p)
	}

	render.JSON(w, http.StatusOK, Response{
		Total:             int(total),
		PromotionsLoading: h.pricer.Loading(),
		Products:          products,
	})
}

func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	product, err := h.repo.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			render.Error(w, http.StatusNotFound, "Product not found")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("loading product")
		render.Error(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	render.JSON(w, http.StatusOK, h.toProduct(*product))
}

// HandleOffers lists every product a promotion currently applies to, biggest
// saving first.
func (h *CatalogHandler) HandleOffers(w http.ResponseWriter, r *http.Request) {
	res, err := h.repo.GetAllProducts(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("listing products for offers")
		render.Error(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	offers := make([]Product, 0, len(res))
	for _, p := range res {
		product := h.toProduct(p)
		if product.Pricing.Promotion != nil {
			offers = append(offers, product)
		}
	}
	sort.SliceStable(offers, func(i, j int) bool {
		if c := offers[i].Pricing.Savings.Cmp(offers[j].Pricing.Savings); c != 0 {
			return c > 0
		}
		return offers[i].Code < offers[j].Code
	})

	render.JSON(w, http.StatusOK, OffersResponse{
		Total:             len(offers),
		ActivePromotions:  h.pricer.ActiveCount(),
		PromotionsLoading: h.pricer.Loading(),
		Products:          offers,
	})
}

func (h *CatalogHandler) toProduct(p models.Product) Product {
	price := p.Price
	quote := h.pricer.Quote(pricing.Product{
		ID:         p.ScopeID(),
		CategoryID: p.CategoryScopeID(),
		Price:      &price,
	})

	out := Product{
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category: Category{
			Code: p.Category.Code,
			Name: p.Category.Name,
		},
		Pricing: Pricing{
			Original:        quote.OriginalPrice,
			Final:           quote.FinalPrice,
			DiscountPercent: quote.DiscountPercent,
			Savings:         quote.Result.Savings,
			Formatted: Formatted{
				Original: quote.Original,
				Final:    quote.Final,
				Savings:  quote.Savings,
			},
		},
	}
	if applied := quote.Applied; applied != nil {
		out.Pricing.Promotion = &Promotion{
			ID:    applied.ID,
			Name:  applied.Name,
			Type:  string(applied.Kind),
			Value: applied.Value,
			Scope: string(applied.Scope),
		}
	}
	return out
}
