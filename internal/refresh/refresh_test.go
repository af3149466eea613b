package refresh

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/prstats/internal/models"
	"github.com/joescharf/prstats/internal/store"
)

// fakeSource implements Source and records review fetches.
type fakeSource struct {
	prs         []*models.PullRequest
	reviews     map[int][]*models.Review
	reviewCalls map[int]int
	listPRsErr  error
	listRevErr  error
}

func newFakeSource(prs ...*models.PullRequest) *fakeSource {
	return &fakeSource{prs: prs, reviews: map[int][]*models.Review{}, reviewCalls: map[int]int{}}
}

func (f *fakeSource) ListPullRequests(_ context.Context) ([]*models.PullRequest, error) {
	if f.listPRsErr != nil {
		return nil, f.listPRsErr
	}
	return f.prs, nil
}

func (f *fakeSource) ListReviews(_ context.Context, number int) ([]*models.Review, error) {
	f.reviewCalls[number]++
	if f.listRevErr != nil {
		return nil, f.listRevErr
	}
	return f.reviews[number], nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testPR(number int, state models.PRState) *models.PullRequest {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.PullRequest{Number: number, Title: "pr", State: state, CreatedAt: created, UpdatedAt: created}
}

func review(id int64, login string) *models.Review {
	at := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)
	return &models.Review{ID: id, Reviewer: login, SubmittedAt: &at}
}

func TestDecide(t *testing.T) {
	closed := testPR(1, models.PRStateClosed)
	open := testPR(2, models.PRStateOpen)

	assert.Equal(t, UseCache, Decide(closed, 2))
	assert.Equal(t, FetchRemote, Decide(closed, 0))
	assert.Equal(t, FetchRemote, Decide(open, 0))
	assert.Equal(t, FetchRemote, Decide(open, 5))
	assert.Equal(t, "cache", UseCache.String())
	assert.Equal(t, "remote", FetchRemote.String())
}

func TestPullRequests_UpsertsAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	src := newFakeSource(testPR(1, models.PRStateOpen), testPR(2, models.PRStateClosed))

	prs, err := PullRequests(ctx, s, src)
	require.NoError(t, err)
	assert.Len(t, prs, 2)

	for _, n := range []int{1, 2} {
		_, err := s.GetPR(ctx, n)
		assert.NoError(t, err)
	}
}

func TestPullRequests_SourceError(t *testing.T) {
	s := newTestStore(t)
	src := newFakeSource()
	src.listPRsErr = models.ErrTransport

	_, err := PullRequests(context.Background(), s, src)
	assert.ErrorIs(t, err, models.ErrTransport)
}

func TestReviews_ClosedCachedSkipsRemote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pr := testPR(1, models.PRStateClosed)
	require.NoError(t, s.UpsertPR(ctx, pr))
	require.NoError(t, s.ReplaceReviews(ctx, 1, []*models.Review{review(1, "alice")}))

	src := newFakeSource(pr)
	src.reviews[1] = []*models.Review{review(2, "mallory")}

	res, err := Reviews(ctx, s, src, pr)
	require.NoError(t, err)
	assert.Equal(t, UseCache, res.Decision)
	assert.Equal(t, 0, src.reviewCalls[1])
	require.Len(t, res.Reviews, 1)
	assert.Equal(t, "alice", res.Reviews[0].Reviewer)
}

func TestReviews_ClosedUncachedFetchesAndWritesThrough(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pr := testPR(1, models.PRStateClosed)
	require.NoError(t, s.UpsertPR(ctx, pr))

	src := newFakeSource(pr)
	src.reviews[1] = []*models.Review{review(1, "alice"), review(2, "bob")}

	res, err := Reviews(ctx, s, src, pr)
	require.NoError(t, err)
	assert.Equal(t, FetchRemote, res.Decision)
	assert.Equal(t, 1, src.reviewCalls[1])
	assert.Len(t, res.Reviews, 2)

	cached, err := s.GetReviews(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	// A second run now trusts the cache.
	res, err = Reviews(ctx, s, src, pr)
	require.NoError(t, err)
	assert.Equal(t, UseCache, res.Decision)
	assert.Equal(t, 1, src.reviewCalls[1])
}

func TestReviews_ClosedWithZeroReviewsRefetchesEveryRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pr := testPR(2, models.PRStateClosed)
	require.NoError(t, s.UpsertPR(ctx, pr))
	src := newFakeSource(pr)

	for i := 0; i < 2; i++ {
		res, err := Reviews(ctx, s, src, pr)
		require.NoError(t, err)
		assert.Equal(t, FetchRemote, res.Decision)
		assert.Empty(t, res.Reviews)
	}
	assert.Equal(t, 2, src.reviewCalls[2])
}

func TestReviews_OpenAlwaysFetches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pr := testPR(3, models.PRStateOpen)
	require.NoError(t, s.UpsertPR(ctx, pr))
	require.NoError(t, s.ReplaceReviews(ctx, 3, []*models.Review{review(1, "stale")}))

	src := newFakeSource(pr)
	src.reviews[3] = []*models.Review{review(2, "alice"), review(3, "bob")}

	for run := 1; run <= 3; run++ {
		res, err := Reviews(ctx, s, src, pr)
		require.NoError(t, err)
		assert.Equal(t, FetchRemote, res.Decision)
		assert.Equal(t, run, src.reviewCalls[3])
	}

	cached, err := s.GetReviews(ctx, 3)
	require.NoError(t, err)
	var logins []string
	for _, r := range cached {
		logins = append(logins, r.Reviewer)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, logins)
}

func TestReviews_FetchErrorKeepsCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pr := testPR(3, models.PRStateOpen)
	require.NoError(t, s.UpsertPR(ctx, pr))
	require.NoError(t, s.ReplaceReviews(ctx, 3, []*models.Review{review(1, "alice")}))

	src := newFakeSource(pr)
	src.listRevErr = errors.Join(models.ErrTransport, errors.New("502"))

	_, err := Reviews(ctx, s, src, pr)
	assert.ErrorIs(t, err, models.ErrTransport)

	cached, err := s.GetReviews(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}
