// Package handler exposes the subscription pipeline over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/subscription/models"
	dErrors "inkwell/pkg/domain-errors"
	"inkwell/pkg/platform/httputil"
	"inkwell/pkg/requestcontext"
)

// Service defines the interface for subscription operations.
type Service interface {
	Subscribe(ctx context.Context, name, email string) (*models.Subscriber, error)
	Confirm(ctx context.Context, token string) (*models.Subscriber, error)
}

// Handler wires subscription endpoints to the subscription service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a subscription handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts subscription endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subscriptions", h.HandleSubscribe)
	r.Get("/subscriptions/confirm", h.HandleConfirm)
	r.Get("/health_check", h.HandleHealthCheck)
}

type statusResponse struct {
	Status string `json:"status"`
}

// HandleSubscribe handles POST /subscriptions requests. The body is a URL
// encoded form with name and email fields.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is not a valid form"))
		return
	}

	subscriber, err := h.service.Subscribe(ctx, r.PostFormValue("name"), r.PostFormValue("email"))
	if err != nil {
		h.logger.ErrorContext(ctx, "subscription failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subscription accepted",
		"request_id", requestID,
		"subscriber_id", subscriber.ID,
		"status", subscriber.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Status: string(subscriber.Status)})
}

// HandleConfirm handles GET /subscriptions/confirm requests. The token
// arrives as the subscription_token query parameter of the mailed link.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "subscription_token is required"))
		return
	}

	subscriber, err := h.service.Confirm(ctx, token)
	if err != nil {
		h.logger.ErrorContext(ctx, "confirmation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subscription confirmed",
		"request_id", requestID,
		"subscriber_id", subscriber.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Status: string(subscriber.Status)})
}

// HandleHealthCheck handles GET /health_check requests.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
