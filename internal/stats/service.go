package stats

import (
	"context"
	"time"

	"github.com/joescharf/prstats/internal/output"
	"github.com/joescharf/prstats/internal/refresh"
	"github.com/joescharf/prstats/internal/store"
	"github.com/joescharf/prstats/internal/window"
)

// Service runs the fetch, cache, filter and aggregate pipeline.
type Service struct {
	store  store.Store
	source refresh.Source
	ui     *output.UI
	now    func() time.Time
}

// NewService creates a Service. Progress messages go to ui.
func NewService(s store.Store, src refresh.Source, ui *output.UI) *Service {
	return &Service{
		store:  s,
		source: src,
		ui:     ui,
		now:    time.Now,
	}
}

// GetStats computes review latency for pull requests created inside the
// optional [from, to] window. Dates are ISO-8601 dates or datetimes; an empty
// string leaves the bound open. The window is validated before any remote call.
//
// Every cache write commits as soon as it is made, so a failure part way
// through leaves the work done so far in the cache.
func (s *Service) GetStats(ctx context.Context, from, to string) (*Result, error) {
	w, err := window.Parse(from, to, s.now())
	if err != nil {
		return nil, err
	}
	if w.IsOpen() {
		s.ui.Info("No date filter applied")
	} else {
		s.ui.Info("Filtering PRs %s", w)
	}

	s.ui.VerboseLog("Fetching all pull requests")
	prs, err := refresh.PullRequests(ctx, s.store, s.source)
	if err != nil {
		return nil, err
	}
	s.ui.Info("Found %d total PRs", len(prs))

	if !w.IsOpen() {
		prs = w.Filter(prs)
		s.ui.Info("After date filtering: %d PRs", len(prs))
	}

	pairs := make([]Pair, 0, len(prs))
	for _, pr := range prs {
		s.ui.VerboseLog("Processing PR #%d: %s [%s]", pr.Number, pr.Title, pr.State)

		res, err := refresh.Reviews(ctx, s.store, s.source, pr)
		if err != nil {
			return nil, err
		}

		switch {
		case res.Decision == refresh.UseCache:
			s.ui.VerboseLog("Using cached reviews for closed PR #%d", pr.Number)
		case pr.IsClosed():
			s.ui.VerboseLog("Fetched reviews for closed PR #%d (not in cache)", pr.Number)
		default:
			s.ui.VerboseLog("Fetched fresh reviews for open PR #%d", pr.Number)
		}

		pairs = append(pairs, Pair{PR: pr, Reviews: res.Reviews})
	}

	result := Aggregate(pairs)
	result.From = w.From
	result.To = w.To
	return result, nil
}
