// Package window narrows pull requests to an inclusive creation-time range.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/prstats/internal/models"
)

// Window is an inclusive time range. A nil bound is open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Parse normalizes optional ISO-8601 bounds. When only from is given, the
// upper bound becomes now. Bounds without a zone are treated as UTC.
func Parse(from, to string, now time.Time) (Window, error) {
	var w Window

	if strings.TrimSpace(from) != "" {
		t, err := models.ParseTimestamp(from)
		if err != nil {
			return Window{}, fmt.Errorf("from date: %w", err)
		}
		w.From = &t
	}

	if strings.TrimSpace(to) != "" {
		t, err := models.ParseTimestamp(to)
		if err != nil {
			return Window{}, fmt.Errorf("to date: %w", err)
		}
		w.To = &t
	} else if w.From != nil {
		t := now.UTC()
		w.To = &t
	}

	if w.From != nil && w.To != nil && w.From.After(*w.To) {
		return Window{}, fmt.Errorf("%w: from %s is after to %s",
			models.ErrInvalidDateRange, w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	return w, nil
}

// IsOpen reports whether neither bound is set.
func (w Window) IsOpen() bool {
	return w.From == nil && w.To == nil
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// Filter returns the pull requests created inside the window, in their original order.
func (w Window) Filter(prs []*models.PullRequest) []*models.PullRequest {
	if w.IsOpen() {
		return prs
	}
	out := make([]*models.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if w.Contains(pr.CreatedAt) {
			out = append(out, pr)
		}
	}
	return out
}

// String describes the window for progress output.
func (w Window) String() string {
	switch {
	case w.From != nil && w.To != nil:
		return fmt.Sprintf("from %s to %s", w.From.Format(time.DateOnly), w.To.Format(time.DateOnly))
	case w.From != nil:
		return fmt.Sprintf("from %s to now", w.From.Format(time.DateOnly))
	case w.To != nil:
		return fmt.Sprintf("up to %s", w.To.Format(time.DateOnly))
	default:
		return "no date filter"
	}
}
