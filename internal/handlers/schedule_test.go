package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slotline/slotline/internal/model"
)

type fakeScheduleStore struct {
	rules      []model.WeeklyRule
	listErr    error
	replaced   []model.WeeklyRule
	replaceErr error
}

func (f *fakeScheduleStore) ListWeeklyRules(_ context.Context, _ string) ([]model.WeeklyRule, error) {
	return f.rules, f.listErr
}

func (f *fakeScheduleStore) ReplaceWeeklyRules(_ context.Context, _ string, rules []model.WeeklyRule) error {
	f.replaced = rules
	return f.replaceErr
}

func TestScheduleListRendersClockTimes(t *testing.T) {
	store := &fakeScheduleStore{rules: []model.WeeklyRule{
		{BusinessID: "biz-1", Weekday: 1, StartMinute: 540, EndMinute: 1020},
	}}
	h := NewScheduleHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule?business_id=biz-1", nil)
	rw := httptest.NewRecorder()
	h.Handle(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), `"start_time":"09:00"`) || !strings.Contains(rw.Body.String(), `"end_time":"17:00"`) {
		t.Fatalf("unexpected body: %s", rw.Body.String())
	}
}

func TestScheduleReplaceParsesClocks(t *testing.T) {
	store := &fakeScheduleStore{}
	h := NewScheduleHandler(store, testLogger())

	body := `{"business_id":"biz-1","rules":[
		{"weekday":1,"start_time":"09:00","end_time":"12:00"},
		{"weekday":1,"start_time":"13:00","end_time":"17:00"}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/schedule", strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.Handle(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	if len(store.replaced) != 2 {
		t.Fatalf("expected 2 rules saved, got %d", len(store.replaced))
	}
	if store.replaced[0].StartMinute != 540 || store.replaced[0].EndMinute != 720 {
		t.Fatalf("unexpected first rule: %+v", store.replaced[0])
	}
	if store.replaced[1].StartMinute != 780 || store.replaced[1].EndMinute != 1020 {
		t.Fatalf("unexpected second rule: %+v", store.replaced[1])
	}
}

func TestScheduleReplaceRejectsBadRules(t *testing.T) {
	h := NewScheduleHandler(&fakeScheduleStore{}, testLogger())

	cases := []struct {
		name string
		body string
	}{
		{"bad weekday", `{"business_id":"biz-1","rules":[{"weekday":7,"start_time":"09:00","end_time":"17:00"}]}`},
		{"bad clock", `{"business_id":"biz-1","rules":[{"weekday":1,"start_time":"25:00","end_time":"17:00"}]}`},
		{"end before start", `{"business_id":"biz-1","rules":[{"weekday":1,"start_time":"17:00","end_time":"09:00"}]}`},
		{"missing business", `{"rules":[{"weekday":1,"start_time":"09:00","end_time":"17:00"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/schedule", strings.NewReader(tc.body))
			rw := httptest.NewRecorder()
			h.Handle(rw, req)
			if rw.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rw.Code)
			}
		})
	}
}

func TestScheduleReplaceEmptyClearsAll(t *testing.T) {
	store := &fakeScheduleStore{}
	h := NewScheduleHandler(store, testLogger())

	body := `{"business_id":"biz-1","rules":[]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/schedule", strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.Handle(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if len(store.replaced) != 0 {
		t.Fatalf("expected empty schedule saved, got %d rules", len(store.replaced))
	}
}
