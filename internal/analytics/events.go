package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventChat   EventType = "chat"
)

// SearchEvent describes one policy search as served by the API.
type SearchEvent struct {
	Type          EventType `json:"type"`
	Query         string    `json:"query"`
	Terms         []string  `json:"terms"`
	Category      string    `json:"category,omitempty"`
	Status        string    `json:"status,omitempty"`
	SortBy        string    `json:"sort_by,omitempty"`
	BudgetFilter  bool      `json:"budget_filter"`
	TotalHits     int       `json:"total_hits"`
	Returned      int       `json:"returned"`
	LatencyMicros int64     `json:"latency_us"`
	CacheHit      bool      `json:"cache_hit"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
}

// ChatEvent describes one completion request forwarded upstream.
type ChatEvent struct {
	Type          EventType `json:"type"`
	Model         string    `json:"model"`
	Messages      int       `json:"messages"`
	Success       bool      `json:"success"`
	LatencyMillis int64     `json:"latency_ms"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
}

// envelope is decoded first to pick the concrete event type.
type envelope struct {
	Type EventType `json:"type"`
}
