package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/timewin"
)

// ScheduleStore holds the weekly recurring hours for a business.
type ScheduleStore interface {
	ListWeeklyRules(ctx context.Context, businessID string) ([]model.WeeklyRule, error)
	ReplaceWeeklyRules(ctx context.Context, businessID string, rules []model.WeeklyRule) error
}

type ScheduleHandler struct {
	store  ScheduleStore
	logger *slog.Logger
}

func NewScheduleHandler(store ScheduleStore, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{store: store, logger: logger}
}

type ruleItem struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *ScheduleHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPut:
		h.replace(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) list(w http.ResponseWriter, r *http.Request) {
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	rules, err := h.store.ListWeeklyRules(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to list schedule", "err", err, "business_id", businessID)
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	items := make([]ruleItem, 0, len(rules))
	for _, wr := range rules {
		items = append(items, ruleItem{
			Weekday:   wr.Weekday,
			StartTime: timewin.FormatClock(wr.StartMinute),
			EndTime:   timewin.FormatClock(wr.EndMinute),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type replaceScheduleRequest struct {
	BusinessID string     `json:"business_id"`
	Rules      []ruleItem `json:"rules"`
}

// replace swaps the whole weekly schedule. Existing appointments are left
// untouched; a shrunk schedule only affects future slot queries.
func (h *ScheduleHandler) replace(w http.ResponseWriter, r *http.Request) {
	var req replaceScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	if req.BusinessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	rules := make([]model.WeeklyRule, 0, len(req.Rules))
	for i, item := range req.Rules {
		if item.Weekday < 0 || item.Weekday > 6 {
			http.Error(w, fmt.Sprintf("rule %d: weekday must be 0..6", i), http.StatusBadRequest)
			return
		}
		start, err := timewin.ParseClock(item.StartTime)
		if err != nil {
			http.Error(w, fmt.Sprintf("rule %d: %v", i, err), http.StatusBadRequest)
			return
		}
		end, err := timewin.ParseClock(item.EndTime)
		if err != nil {
			http.Error(w, fmt.Sprintf("rule %d: %v", i, err), http.StatusBadRequest)
			return
		}
		if end <= start {
			http.Error(w, fmt.Sprintf("rule %d: end_time must be after start_time", i), http.StatusBadRequest)
			return
		}
		rules = append(rules, model.WeeklyRule{
			BusinessID:  req.BusinessID,
			Weekday:     item.Weekday,
			StartMinute: start,
			EndMinute:   end,
		})
	}

	if err := h.store.ReplaceWeeklyRules(r.Context(), req.BusinessID, rules); err != nil {
		h.logger.Error("failed to replace schedule", "err", err, "business_id", req.BusinessID)
		http.Error(w, "failed to save schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rules": len(rules)})
}
