package refresh

import (
	"context"

	"github.com/joescharf/prstats/internal/models"
	"github.com/joescharf/prstats/internal/store"
)

// Source is the remote side of the cache.
type Source interface {
	ListPullRequests(ctx context.Context) ([]*models.PullRequest, error)
	ListReviews(ctx context.Context, number int) ([]*models.Review, error)
}

// Result holds the review set resolved for one pull request.
type Result struct {
	Reviews  []*models.Review
	Decision Decision
}

// PullRequests fetches every pull request and upserts each one into the cache.
// Each write commits on its own; a failure leaves earlier rows in place.
func PullRequests(ctx context.Context, s store.Store, src Source) ([]*models.PullRequest, error) {
	prs, err := src.ListPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	for _, pr := range prs {
		if err := s.UpsertPR(ctx, pr); err != nil {
			return nil, err
		}
	}
	return prs, nil
}

// Reviews resolves the review set of pr according to Decide. Refetched reviews
// replace the cached set before they are returned.
func Reviews(ctx context.Context, s store.Store, src Source, pr *models.PullRequest) (*Result, error) {
	var cached []*models.Review
	if pr.IsClosed() {
		var err error
		cached, err = s.GetReviews(ctx, pr.Number)
		if err != nil {
			return nil, err
		}
	}

	if Decide(pr, len(cached)) == UseCache {
		return &Result{Reviews: cached, Decision: UseCache}, nil
	}

	reviews, err := src.ListReviews(ctx, pr.Number)
	if err != nil {
		return nil, err
	}
	if err := s.ReplaceReviews(ctx, pr.Number, reviews); err != nil {
		return nil, err
	}
	return &Result{Reviews: reviews, Decision: FetchRemote}, nil
}
