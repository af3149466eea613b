package models

import (
	"encoding/json"
	"time"
)

// Review is a single review event on a pull request.
type Review struct {
	ID          int64           `json:"id"`
	PRNumber    int             `json:"pr_number"`
	Reviewer    string          `json:"reviewer"`
	State       string          `json:"state"`
	SubmittedAt *time.Time      `json:"submitted_at"` // nil while the review is pending
	Raw         json.RawMessage `json:"-"`
}

// IsPending reports whether the review has not been submitted yet.
func (r *Review) IsPending() bool {
	return r.SubmittedAt == nil
}
