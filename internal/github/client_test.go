package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/prstats/internal/config"
	"github.com/joescharf/prstats/internal/logger"
	"github.com/joescharf/prstats/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{GitHub: config.GitHub{
		Token:   "test-token",
		Owner:   "octo",
		Repo:    "hello",
		BaseURL: srv.URL,
		PerPage: 2,
	}}
	c, err := NewClient(context.Background(), cfg, logger.NewLogger(logger.Config{Level: "debug"}, io.Discard))
	require.NoError(t, err)
	return c
}

func TestListPullRequests_FollowsLinkHeader(t *testing.T) {
	var authHeaders []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		switch r.URL.Query().Get("page") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/octo/hello/pulls?state=all&per_page=2&page=2>; rel="next"`, r.Host))
			fmt.Fprint(w, `[
				{"number": 3, "title": "Third", "state": "open", "created_at": "2024-01-03T00:00:00Z", "updated_at": "2024-01-03T01:00:00Z"},
				{"number": 2, "title": "Second", "state": "closed", "created_at": "2024-01-02T00:00:00Z", "updated_at": "2024-01-02T01:00:00Z"}
			]`)
		case "2":
			fmt.Fprint(w, `[
				{"number": 1, "title": "First", "state": "closed", "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T01:00:00Z", "draft": false}
			]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	c := newTestClient(t, mux)

	prs, err := c.ListPullRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 3)

	assert.Equal(t, 3, prs[0].Number)
	assert.Equal(t, "Third", prs[0].Title)
	assert.Equal(t, models.PRStateOpen, prs[0].State)
	assert.Equal(t, models.PRStateClosed, prs[1].State)
	assert.Equal(t, 1, prs[2].Number)
	assert.True(t, prs[2].CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, prs[2].UpdatedAt.Equal(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)))
	assert.Contains(t, string(prs[2].Raw), `"draft": false`)

	require.Len(t, authHeaders, 2)
	for _, h := range authHeaders {
		assert.Equal(t, "Bearer test-token", h)
	}
}

func TestListPullRequests_FollowsOpaqueCursor(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		switch r.URL.Query().Get("cursor") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/octo/hello/pulls?state=all&cursor=abc>; rel="next", <http://%s/repos/octo/hello/pulls?state=all&cursor=zzz>; rel="last"`, r.Host, r.Host))
			fmt.Fprint(w, `[{"number": 2, "title": "Second", "state": "open", "created_at": "2024-01-02T00:00:00Z", "updated_at": "2024-01-02T00:00:00Z"}]`)
		case "abc":
			fmt.Fprint(w, `[{"number": 1, "title": "First", "state": "closed", "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"}]`)
		default:
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
	})
	c := newTestClient(t, mux)

	prs, err := c.ListPullRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.Equal(t, 2, prs[0].Number)
	assert.Equal(t, 1, prs[1].Number)

	require.Len(t, queries, 2)
	assert.Equal(t, "state=all&cursor=abc", queries[1], "next link is followed as served")
}

func TestListReviews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls/4/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 11, "user": {"login": "alice"}, "state": "APPROVED", "submitted_at": "2024-01-01T05:00:00Z"},
			{"id": 12, "user": {"login": "bob"}, "state": "PENDING"},
			{"id": 13, "user": null, "state": "COMMENTED", "submitted_at": "2024-01-01T07:00:00Z"}
		]`)
	})
	c := newTestClient(t, mux)

	reviews, err := c.ListReviews(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	assert.Equal(t, int64(11), reviews[0].ID)
	assert.Equal(t, 4, reviews[0].PRNumber)
	assert.Equal(t, "alice", reviews[0].Reviewer)
	require.NotNil(t, reviews[0].SubmittedAt)
	assert.True(t, reviews[0].SubmittedAt.Equal(time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)))

	assert.Equal(t, "bob", reviews[1].Reviewer)
	assert.True(t, reviews[1].IsPending())

	assert.Equal(t, ghostLogin, reviews[2].Reviewer)
}

func TestListReviews_Empty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls/9/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	c := newTestClient(t, mux)

	reviews, err := c.ListReviews(context.Background(), 9)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestFetchCollection_TransportError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message": "boom"}`)
	})
	c := newTestClient(t, mux)

	_, err := c.ListPullRequests(context.Background())
	assert.ErrorIs(t, err, models.ErrTransport)
}

func TestFetchCollection_ErrorOnLaterPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls/1/reviews", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/octo/hello/pulls/1/reviews?per_page=2&page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"id": 1, "user": {"login": "alice"}, "submitted_at": "2024-01-01T05:00:00Z"}]`)
	})
	c := newTestClient(t, mux)

	_, err := c.ListReviews(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrTransport)
}

func TestListPullRequests_MalformedTimestamp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"number": 1, "title": "Bad", "state": "open", "created_at": "last tuesday", "updated_at": "2024-01-01T00:00:00Z"}]`)
	})
	c := newTestClient(t, mux)

	_, err := c.ListPullRequests(context.Background())
	assert.ErrorIs(t, err, models.ErrMalformedTimestamp)
}

func TestListReviews_MalformedTimestamp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls/2/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "user": {"login": "alice"}, "submitted_at": "24/01/2024"}]`)
	})
	c := newTestClient(t, mux)

	_, err := c.ListReviews(context.Background(), 2)
	assert.ErrorIs(t, err, models.ErrMalformedTimestamp)
}
