// Package stats computes review latency metrics over cached pull requests.
package stats

import (
	"slices"
	"sort"
	"time"

	"github.com/joescharf/prstats/internal/models"
)

// Pair is one pull request with the review set resolved for it.
type Pair struct {
	PR      *models.PullRequest
	Reviews []*models.Review
}

// PRMetric is the first-review latency of one pull request.
// FirstReviewAt and TimeToFirstReviewHours are nil when no review has been
// submitted; ReviewCount and PendingCount tell "no reviews" apart from
// "only pending reviews".
type PRMetric struct {
	Number                 int        `json:"pr_number"`
	Title                  string     `json:"title"`
	State                  string     `json:"state"`
	CreatedAt              time.Time  `json:"created_at"`
	FirstReviewAt          *time.Time `json:"first_review_at"`
	FirstReviewer          string     `json:"first_reviewer,omitempty"`
	TimeToFirstReviewHours *float64   `json:"time_to_first_review_hours"`
	ReviewCount            int        `json:"review_count"`
	PendingCount           int        `json:"pending_count"`
}

// HasReviews reports whether any review, submitted or pending, was seen.
func (m PRMetric) HasReviews() bool {
	return m.ReviewCount > 0
}

// ReviewerMetric is the latency distribution of one reviewer, in hours from
// pull request creation to review submission.
type ReviewerMetric struct {
	Reviewer     string  `json:"reviewer"`
	AverageHours float64 `json:"average_hours"`
	FastestHours float64 `json:"fastest_hours"`
	SlowestHours float64 `json:"slowest_hours"`
	Count        int     `json:"total_reviews"`
}

// Result is the output of one stats run.
type Result struct {
	From         *time.Time       `json:"from,omitempty"`
	To           *time.Time       `json:"to,omitempty"`
	PullRequests []PRMetric       `json:"pull_requests"`
	Reviewers    []ReviewerMetric `json:"reviewers"`
}

func hoursBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours()
}

// submitted returns the reviews that carry a submission time, earliest first.
func submitted(reviews []*models.Review) []*models.Review {
	out := make([]*models.Review, 0, len(reviews))
	for _, r := range reviews {
		if !r.IsPending() {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Review) int {
		return a.SubmittedAt.Compare(*b.SubmittedAt)
	})
	return out
}

// Aggregate folds pairs into per pull request and per reviewer metrics.
// Pull request metrics keep the order of pairs; reviewers are sorted by login.
// Latencies are not clamped: a review stamped before its pull request was
// created yields a negative value.
func Aggregate(pairs []Pair) *Result {
	res := &Result{
		PullRequests: make([]PRMetric, 0, len(pairs)),
		Reviewers:    []ReviewerMetric{},
	}
	byReviewer := make(map[string][]float64)

	for _, p := range pairs {
		done := submitted(p.Reviews)

		m := PRMetric{
			Number:       p.PR.Number,
			Title:        p.PR.Title,
			State:        string(p.PR.State),
			CreatedAt:    p.PR.CreatedAt,
			ReviewCount:  len(p.Reviews),
			PendingCount: len(p.Reviews) - len(done),
		}
		if len(done) > 0 {
			first := done[0]
			at := *first.SubmittedAt
			hours := hoursBetween(p.PR.CreatedAt, at)
			m.FirstReviewAt = &at
			m.FirstReviewer = first.Reviewer
			m.TimeToFirstReviewHours = &hours
		}
		res.PullRequests = append(res.PullRequests, m)

		for _, r := range done {
			byReviewer[r.Reviewer] = append(byReviewer[r.Reviewer], hoursBetween(p.PR.CreatedAt, *r.SubmittedAt))
		}
	}

	logins := make([]string, 0, len(byReviewer))
	for login := range byReviewer {
		logins = append(logins, login)
	}
	sort.Strings(logins)

	for _, login := range logins {
		res.Reviewers = append(res.Reviewers, summarize(login, byReviewer[login]))
	}
	return res
}

// summarize requires at least one sample.
func summarize(login string, hours []float64) ReviewerMetric {
	sum := 0.0
	for _, h := range hours {
		sum += h
	}
	return ReviewerMetric{
		Reviewer:     login,
		AverageHours: sum / float64(len(hours)),
		FastestHours: slices.Min(hours),
		SlowestHours: slices.Max(hours),
		Count:        len(hours),
	}
}
