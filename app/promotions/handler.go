package promotions

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mytheresa/storefront-pricing/app/render"
	"github.com/mytheresa/storefront-pricing/pricing"
)

type Response struct {
	Total      int                 `json:"total"`
	Active     int                 `json:"active"`
	Loading    bool                `json:"loading"`
	Loaded     bool                `json:"loaded"`
	LoadedAt   *time.Time          `json:"loaded_at,omitempty"`
	Notice     string              `json:"notice,omitempty"`
	Promotions []pricing.Promotion `json:"promotions"`
}

// PromotionProvider is the slice of *pricing.Pricer this view needs.
type PromotionProvider interface {
	Promotions() []pricing.Promotion
	Loading() bool
	Loaded() bool
	LoadedAt() time.Time
	LoadErr() error
	ActiveCount() int
	Reload(ctx context.Context) error
}

type PromotionsHandler struct {
	pricer PromotionProvider
}

func NewPromotionsHandler(p PromotionProvider) *PromotionsHandler {
	return &PromotionsHandler{pricer: p}
}

func (h *PromotionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, h.snapshot())
}

// HandleReload forces a fetch. A failed reload keeps serving the previous list.
func (h *PromotionsHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.pricer.Reload(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("manual promotion reload failed")
		render.Error(w, http.StatusBadGateway, "failed to reload promotions")
		return
	}
	render.JSON(w, http.StatusOK, h.snapshot())
}

func (h *PromotionsHandler) snapshot() Response {
	promos := h.pricer.Promotions()
	if promos == nil {
		promos = []pricing.Promotion{}
	}
	resp := Response{
		Total:      len(promos),
		Active:     h.pricer.ActiveCount(),
		Loading:    h.pricer.Loading(),
		Loaded:     h.pricer.Loaded(),
		Promotions: promos,
	}
	if at := h.pricer.LoadedAt(); !at.IsZero() {
		resp.LoadedAt = &at
	}
	if err := h.pricer.LoadErr(); err != nil {
		resp.Notice = "promotions are temporarily unavailable"
	}
	return resp
}
