package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotline/slotline/internal/model"
)

// BusinessStore holds per-tenant profile metadata.
type BusinessStore interface {
	Business(ctx context.Context, businessID string) (model.Business, error)
	UpdateBusiness(ctx context.Context, businessID, name, timezone string) error
}

type BusinessHandler struct {
	store  BusinessStore
	logger *slog.Logger
}

func NewBusinessHandler(store BusinessStore, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{store: store, logger: logger}
}

type businessItem struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
}

func (h *BusinessHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BusinessHandler) get(w http.ResponseWriter, r *http.Request) {
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	b, err := h.store.Business(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to load business", "err", err, "business_id", businessID)
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, businessItem{BusinessID: b.ID, Name: b.Name, Timezone: b.Timezone})
}

type updateBusinessRequest struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
}

func (h *BusinessHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.BusinessID == "" || req.Name == "" {
		http.Error(w, "business_id and name required", http.StatusBadRequest)
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "unknown timezone", http.StatusBadRequest)
			return
		}
	}

	if err := h.store.UpdateBusiness(r.Context(), req.BusinessID, req.Name, req.Timezone); err != nil {
		h.logger.Error("failed to update business", "err", err, "business_id", req.BusinessID)
		http.Error(w, "failed to update business", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, businessItem{BusinessID: req.BusinessID, Name: req.Name, Timezone: req.Timezone})
}
