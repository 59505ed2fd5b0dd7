package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CacheRow is one persisted response cache entry. Rows are ordered by
// Position, least recently used first.
type CacheRow struct {
	Position  int
	Query     string
	Response  string
	Source    string
	UseCase   string
	Validated bool
	CreatedAt time.Time
	Embedding []float32
}

// TurnRow is an audit record of one completed assistant turn.
type TurnRow struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Intent    string    `json:"intent"`
	UseCase   string    `json:"use_case"`
	Context   string    `json:"context"`
	Response  string    `json:"response"`
	Cached    bool      `json:"cached"`
	CreatedAt time.Time `json:"created_at"`
}
