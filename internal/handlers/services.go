package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/storage"
)

// CatalogStore manages the bookable service catalog of a business.
type CatalogStore interface {
	CreateService(ctx context.Context, businessID, name string, durationMinutes int, price string) (model.Service, error)
	ListServices(ctx context.Context, businessID string, activeOnly bool) ([]model.Service, error)
	DeactivateService(ctx context.Context, businessID, serviceID string) error
}

type ServiceHandler struct {
	store  CatalogStore
	logger *slog.Logger
}

func NewServiceHandler(store CatalogStore, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{store: store, logger: logger}
}

type serviceItem struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price,omitempty"`
	Active          bool   `json:"active"`
}

func toServiceItem(s model.Service) serviceItem {
	return serviceItem{
		ServiceID:       s.ID,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		Active:          s.Active,
	}
}

func (h *ServiceHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ServiceHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	activeOnly := q.Get("include_inactive") != "true"

	services, err := h.store.ListServices(r.Context(), businessID, activeOnly)
	if err != nil {
		h.logger.Error("failed to list services", "err", err, "business_id", businessID)
		http.Error(w, "failed to load services", http.StatusInternalServerError)
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, toServiceItem(s))
	}
	writeJSON(w, http.StatusOK, items)
}

type createServiceRequest struct {
	BusinessID      string `json:"business_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

func (h *ServiceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.Name = strings.TrimSpace(req.Name)
	if req.BusinessID == "" || req.Name == "" {
		http.Error(w, "business_id and name required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > 8*60 {
		http.Error(w, "duration_minutes must be between 1 and 480", http.StatusBadRequest)
		return
	}

	svc, err := h.store.CreateService(r.Context(), req.BusinessID, req.Name, req.DurationMinutes, req.Price)
	if err != nil {
		h.logger.Error("failed to create service", "err", err, "business_id", req.BusinessID)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceItem(svc))
}

// Deactivate retires a service from the public catalog. Appointments already
// booked against it keep their stored duration.
func (h *ServiceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		BusinessID string `json:"business_id"`
		ServiceID  string `json:"service_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.BusinessID == "" || req.ServiceID == "" {
		http.Error(w, "business_id and service_id required", http.StatusBadRequest)
		return
	}

	if err := h.store.DeactivateService(r.Context(), req.BusinessID, req.ServiceID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to deactivate service", "err", err, "service_id", req.ServiceID)
		http.Error(w, "failed to deactivate service", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
