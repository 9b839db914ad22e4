package audit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

type stubEventRepo struct {
	events   []shared.Event
	lastCall Query
}

func (s *stubEventRepo) ListEvents(ctx context.Context, q Query) ([]shared.Event, error) {
	s.lastCall = q
	out := s.events
	if q.Offset < len(out) {
		out = out[q.Offset:]
	} else {
		out = nil
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func mockEvents(n int) []shared.Event {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	events := make([]shared.Event, n)
	for i := range events {
		events[i] = shared.Event{
			ID:          int64(n - i),
			At:          base.Add(-time.Duration(i) * time.Hour),
			Actor:       "admin",
			Action:      shared.ActionMNStatusChange,
			Description: "MN ID 1 status changed from Pending to Rejected.",
		}
	}
	return events
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubEventRepo{events: mockEvents(3)}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), Filters{Page: 1, PageSize: 2, Actor: " admin "})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result.Events))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 2 {
		t.Fatalf("expected next page 2, got %+v", result.Paging)
	}
	if repo.lastCall.Limit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastCall.Limit)
	}
	if repo.lastCall.Actor != "admin" {
		t.Fatalf("expected trimmed actor, got %q", repo.lastCall.Actor)
	}

	result, err = svc.Timeline(context.Background(), Filters{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline page 2: %v", err)
	}
	if len(result.Events) != 1 || result.Paging.HasNext || result.Paging.PrevPage != 1 {
		t.Fatalf("unexpected second page: %+v", result.Paging)
	}
	if repo.lastCall.Offset != 2 {
		t.Fatalf("expected offset 2, got %d", repo.lastCall.Offset)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubEventRepo{}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), Filters{PageSize: 5000})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.PageSize != maxPageSize || result.Paging.Page != 1 {
		t.Fatalf("unexpected paging %+v", result.Paging)
	}
}

func TestParseFilters(t *testing.T) {
	req := httptest.NewRequest("GET", "/?from=2026-03-01&to=2026-03-10&actor=admin&page=3", nil)
	filters, err := parseFilters(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !filters.To.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("to must be exclusive next day, got %s", filters.To)
	}
	if filters.Page != 3 || filters.Actor != "admin" {
		t.Fatalf("unexpected filters %+v", filters)
	}

	req = httptest.NewRequest("GET", "/?from=2026-03-10&to=2026-03-01", nil)
	if _, err := parseFilters(req); err == nil {
		t.Fatalf("expected inverted range to fail")
	}
	req = httptest.NewRequest("GET", "/?from=10-03-2026", nil)
	if _, err := parseFilters(req); err == nil {
		t.Fatalf("expected malformed date to fail")
	}
}
