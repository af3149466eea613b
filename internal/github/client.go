// Package github fetches pull requests and reviews from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/joescharf/prstats/internal/config"
	"github.com/joescharf/prstats/internal/models"
)

// Client reads pull request data for a single repository.
type Client struct {
	gh      *github.Client
	owner   string
	repo    string
	perPage int
	logger  *slog.Logger
}

// NewClient creates a client authenticated with the configured token.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	var httpClient *http.Client
	if cfg.GitHub.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHub.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	gh := github.NewClient(httpClient)

	if cfg.GitHub.BaseURL != "" {
		base := cfg.GitHub.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github.base_url: %w", err)
		}
		gh.BaseURL = u
	}

	perPage := cfg.GitHub.PerPage
	if perPage <= 0 {
		perPage = config.DefaultPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		gh:      gh,
		owner:   cfg.GitHub.Owner,
		repo:    cfg.GitHub.Repo,
		perPage: perPage,
		logger:  logger,
	}, nil
}

// FetchCollection GETs a JSON list resource and follows the Link rel="next"
// continuation until the server reports no further page. All pages are
// concatenated in the order served.
func (c *Client) FetchCollection(ctx context.Context, path string) ([]json.RawMessage, error) {
	var all []json.RawMessage

	for next := path; next != ""; {
		req, err := c.gh.NewRequest(http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: build request %s: %w", models.ErrTransport, next, err)
		}

		var page []json.RawMessage
		resp, err := c.gh.Do(ctx, req, &page)
		if err != nil {
			c.logger.Error("github request failed", "path", next, "error", err)
			return nil, fmt.Errorf("%w: GET %s: %w", models.ErrTransport, next, err)
		}
		all = append(all, page...)
		next = nextLink(resp)
		c.logger.Debug("fetched page", "path", req.URL.String(), "items", len(page), "next", next)
	}

	return all, nil
}

// nextLink returns the URL of the rel="next" entry in the response's Link
// header, exactly as the server sent it, or "" when there is none.
func nextLink(resp *github.Response) string {
	for _, link := range strings.Split(resp.Header.Get("Link"), ",") {
		target, params, ok := strings.Cut(link, ";")
		if !ok {
			continue
		}
		for _, param := range strings.Split(params, ";") {
			param = strings.ReplaceAll(strings.TrimSpace(param), " ", "")
			if param == `rel="next"` || param == "rel=next" {
				return strings.Trim(strings.TrimSpace(target), "<>")
			}
		}
	}
	return ""
}

type pullPayload struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type reviewPayload struct {
	ID   int64 `json:"id"`
	User *struct {
		Login string `json:"login"`
	} `json:"user"`
	State       string  `json:"state"`
	SubmittedAt *string `json:"submitted_at"`
}

// ghostLogin is the login GitHub shows for deleted accounts.
const ghostLogin = "ghost"

// ListPullRequests returns every pull request of the repository, open and closed,
// in the order the API serves them.
func (c *Client) ListPullRequests(ctx context.Context) ([]*models.PullRequest, error) {
	path := fmt.Sprintf("repos/%s/%s/pulls?state=all&per_page=%d", c.owner, c.repo, c.perPage)
	raws, err := c.FetchCollection(ctx, path)
	if err != nil {
		return nil, err
	}

	prs := make([]*models.PullRequest, 0, len(raws))
	for _, raw := range raws {
		pr, err := decodePullRequest(raw)
		if err != nil {
			return nil, err
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

// ListReviews returns every review of one pull request, pending ones included.
func (c *Client) ListReviews(ctx context.Context, number int) ([]*models.Review, error) {
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/reviews?per_page=%d", c.owner, c.repo, number, c.perPage)
	raws, err := c.FetchCollection(ctx, path)
	if err != nil {
		return nil, err
	}

	reviews := make([]*models.Review, 0, len(raws))
	for _, raw := range raws {
		r, err := decodeReview(number, raw)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

func decodePullRequest(raw json.RawMessage) (*models.PullRequest, error) {
	var p pullPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode pull request: %w", err)
	}

	created, err := models.ParseTimestamp(p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("pull request #%d created_at: %w", p.Number, err)
	}
	updated, err := models.ParseTimestamp(p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("pull request #%d updated_at: %w", p.Number, err)
	}

	return &models.PullRequest{
		Number:    p.Number,
		Title:     p.Title,
		State:     models.PRState(strings.ToLower(p.State)),
		CreatedAt: created,
		UpdatedAt: updated,
		Raw:       raw,
	}, nil
}

func decodeReview(prNumber int, raw json.RawMessage) (*models.Review, error) {
	var p reviewPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode review of #%d: %w", prNumber, err)
	}

	r := &models.Review{
		ID:       p.ID,
		PRNumber: prNumber,
		Reviewer: ghostLogin,
		State:    p.State,
		Raw:      raw,
	}
	if p.User != nil && p.User.Login != "" {
		r.Reviewer = p.User.Login
	}
	if p.SubmittedAt != nil && *p.SubmittedAt != "" {
		t, err := models.ParseTimestamp(*p.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("review %d of #%d submitted_at: %w", p.ID, prNumber, err)
		}
		r.SubmittedAt = &t
	}
	return r, nil
}
