package api

import (
	"time"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type DocumentResponse struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type SortResponse struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

type SearchResponse struct {
	Documents     []DocumentResponse `json:"documents"`
	Count         int                `json:"count"`
	Total         int                `json:"total"`
	Page          int                `json:"page"`
	PerPage       int                `json:"per_page"`
	LastPage      int                `json:"last_page"`
	HasMore       bool               `json:"has_more"`
	Sort          SortResponse       `json:"sort"`
	ActiveFilters []string           `json:"active_filters"`
	// Request is the executed search request rendered as JSON.
	Request string `json:"request,omitempty"`
}

type FieldResponse struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Options map[string]any `json:"options,omitempty"`
}

type ColumnResponse struct {
	Name     string `json:"name"`
	Sortable bool   `json:"sortable"`
}

type FiltersResponse struct {
	Fields  []FieldResponse  `json:"fields"`
	Columns []ColumnResponse `json:"columns"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
