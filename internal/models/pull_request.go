package models

import (
	"encoding/json"
	"time"
)

// PRState represents the lifecycle state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// PullRequest is the cached representation of a remote pull request.
type PullRequest struct {
	Number    int             `json:"number"`
	Title     string          `json:"title"`
	State     PRState         `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Raw       json.RawMessage `json:"-"` // full remote payload, kept for fidelity
}

// IsClosed reports whether the pull request is no longer open.
func (p *PullRequest) IsClosed() bool {
	return p.State == PRStateClosed
}

// CacheRecord pairs a pull request with the time it was last written to the cache.
type CacheRecord struct {
	PullRequest
	CachedAt time.Time `json:"cached_at"`
}

// CachedPR is a cache record together with its cached review set.
type CachedPR struct {
	*CacheRecord
	Reviews []*Review `json:"reviews"`
}
