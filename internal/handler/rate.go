package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkamau/tokenvault/internal/logging"
)

type rateQuoter interface {
	CurrentUSDQuote(ctx context.Context) (decimal.Decimal, time.Time, bool)
}

type RateHandler struct {
	rates rateQuoter
}

func NewRateHandler(rates rateQuoter) *RateHandler {
	return &RateHandler{rates: rates}
}

type rateResponse struct {
	USDPrice string    `json:"usd_price"`
	AsOf     time.Time `json:"as_of"`
}

func (h *RateHandler) Current(w http.ResponseWriter, r *http.Request) {
	price, fetchedAt, ok := h.rates.CurrentUSDQuote(r.Context())
	if !ok {
		logging.FromContext(r.Context()).Warn("rate requested but none available")
		RespondAppError(w, ErrRateUnavailable, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, rateResponse{
		USDPrice: price.String(),
		AsOf:     fetchedAt.UTC(),
	})
}
