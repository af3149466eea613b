package store

import (
	"context"

	"github.com/joescharf/prstats/internal/models"
)

// Store defines the persistence interface for the pull request cache.
type Store interface {
	// Pull requests
	UpsertPR(ctx context.Context, pr *models.PullRequest) error
	GetPR(ctx context.Context, number int) (*models.CacheRecord, error)
	ListClosedPRs(ctx context.Context) ([]*models.PullRequest, error)

	// Reviews
	ReplaceReviews(ctx context.Context, prNumber int, reviews []*models.Review) error
	GetReviews(ctx context.Context, prNumber int) ([]*models.Review, error)
	InvalidateReviews(ctx context.Context, prNumber int) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
