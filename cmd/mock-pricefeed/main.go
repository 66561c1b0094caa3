package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/mkamau/tokenvault/internal/logging"
)

// Stand-in for the upstream price API in local compose setups. Serves a fixed
// price in the same response shape as the real assets endpoint.
func main() {
	logging.Init("mock-pricefeed", "info", os.Getenv("APP_ENV"))

	price := os.Getenv("MOCK_PRICE_USD")
	if price == "" {
		price = "2.50"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})
	mux.HandleFunc("GET /v2/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"data": map[string]string{
				"id":       r.PathValue("id"),
				"priceUsd": price,
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write asset response", "error", err)
		}
	})

	slog.Info("mock pricefeed started", "addr", ":8081", "price_usd", price)
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
