package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"parking-ledger-backend/internal/ledger"
	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	ledger  *ledger.Service
	store   store.Store
	webpush *webpush.Options
	log     *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *ledger.Service, s store.Store, webpushOptions *webpush.Options, log *logger.Logger) *Handler {
	return &Handler{
		ledger:  svc,
		store:   s,
		webpush: webpushOptions,
		log:     log.With("component", "API"),
	}
}
