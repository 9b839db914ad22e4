// Package audit exposes the append-only event log to administrators and supers.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Filters narrows the event log. Zero times leave the range open.
type Filters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo carries simple lookahead pagination.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result is one page of events.
type Result struct {
	Events []shared.Event `json:"events"`
	Paging PagingInfo     `json:"paging"`
}

// Query is the repository-level request.
type Query struct {
	From   time.Time
	To     time.Time
	Actor  string
	Action string
	Offset int
	Limit  int
}

// Repository reads the event log. Limit 0 means no limit.
type Repository interface {
	ListEvents(ctx context.Context, q Query) ([]shared.Event, error)
}

// Service coordinates event log reads.
type Service struct {
	repo Repository
}

// NewService builds the event log service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of events, newest first.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	events, err := s.repo.ListEvents(ctx, Query{
		From:   filters.From,
		To:     filters.To,
		Actor:  strings.TrimSpace(filters.Actor),
		Action: strings.TrimSpace(filters.Action),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(events) > pageSize
	if hasNext {
		events = events[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Events: events, Paging: paging}, nil
}
