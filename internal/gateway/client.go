package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	apperrors "github.com/repolens/repolens/internal/errors"
)

// Config holds the upstream endpoints and credentials. Empty URLs mean the
// public GitHub API; tests point them at httptest servers.
type Config struct {
	Token      string
	BaseURL    string
	UploadURL  string
	GraphQLURL string
}

// Client is the thin authenticated gateway to GitHub. Structured queries go
// through GraphQL; paged listings, raw file content and event feeds go
// through REST.
type Client struct {
	rest *github.Client
	gql  *GraphQLClient
}

// CommitListOptions narrows a commit listing to a window, an author, or both.
type CommitListOptions struct {
	Since   time.Time
	Until   time.Time
	Author  string
	PerPage int
}

// NewClient creates a gateway client authenticated with cfg.Token.
func NewClient(cfg Config) (*Client, error) {
	httpClient := http.DefaultClient
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	rest := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		uploadURL := cfg.UploadURL
		if uploadURL == "" {
			uploadURL = cfg.BaseURL
		}
		var err error
		rest, err = rest.WithEnterpriseURLs(cfg.BaseURL, uploadURL)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		rest: rest,
		gql:  NewGraphQLClient(cfg.GraphQLURL, cfg.Token),
	}, nil
}

// Query executes a GraphQL query and decodes the data payload into out.
func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	return c.gql.Query(ctx, query, variables, out)
}

// GetPoolStats returns GraphQL connection pool statistics.
func (c *Client) GetPoolStats() map[string]interface{} {
	return c.gql.GetPoolStats()
}

// Close releases the GraphQL connection pool.
func (c *Client) Close() error {
	return c.gql.Close()
}

// ListContributors returns one page of contributors plus the last page number
// from the pagination metadata (0 when the listing fits in a single page).
func (c *Client) ListContributors(ctx context.Context, owner, repo string, perPage int) ([]*github.Contributor, int, error) {
	contributors, resp, err := c.rest.Repositories.ListContributors(ctx, owner, repo, &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, 0, classifyRESTError(ctx, err)
	}

	return contributors, resp.LastPage, nil
}

// ListCommits returns up to opts.PerPage commits from the default branch.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, opts CommitListOptions) ([]*github.RepositoryCommit, error) {
	ghOpts := &github.CommitsListOptions{
		Author:      opts.Author,
		ListOptions: github.ListOptions{PerPage: opts.PerPage},
	}
	if !opts.Since.IsZero() {
		ghOpts.Since = opts.Since
	}
	if !opts.Until.IsZero() {
		ghOpts.Until = opts.Until
	}

	commits, _, err := c.rest.Repositories.ListCommits(ctx, owner, repo, ghOpts)
	if err != nil {
		return nil, classifyRESTError(ctx, err)
	}

	return commits, nil
}

// ListLanguages returns the byte count per language.
func (c *Client) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	languages, _, err := c.rest.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, classifyRESTError(ctx, err)
	}

	return languages, nil
}

// GetFileContent fetches and decodes one file from the default branch.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path string) ([]byte, error) {
	file, _, _, err := c.rest.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		return nil, classifyRESTError(ctx, err)
	}
	if file == nil {
		return nil, apperrors.NewUpstreamError("path is a directory, not a file", nil)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to decode file content", err)
	}

	return []byte(content), nil
}

// ListStargazers returns one page of star events with their timestamps.
func (c *Client) ListStargazers(ctx context.Context, owner, repo string, perPage int) ([]*github.Stargazer, error) {
	stargazers, _, err := c.rest.Activity.ListStargazers(ctx, owner, repo, &github.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, classifyRESTError(ctx, err)
	}

	return stargazers, nil
}

// ListCommitActivity returns the 52-week commit activity series. GitHub
// computes these stats lazily and may answer 202 until they are ready; that
// surfaces as an *github.AcceptedError and is treated as an upstream failure
// the caller degrades around.
func (c *Client) ListCommitActivity(ctx context.Context, owner, repo string) ([]*github.WeeklyCommitActivity, error) {
	activity, _, err := c.rest.Repositories.ListCommitActivity(ctx, owner, repo)
	if err != nil {
		return nil, classifyRESTError(ctx, err)
	}

	return activity, nil
}

// GetRepository fetches repository metadata over REST. Used only as the last
// tier of the minimal-snapshot fallback chain.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	repository, _, err := c.rest.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, classifyRESTError(ctx, err)
	}

	return repository, nil
}

// classifyRESTError maps go-github failures onto the service error taxonomy.
func classifyRESTError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("GitHub API request timed out", err)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.NewRateLimitError(time.Until(rateErr.Rate.Reset.Time).String())
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retryAfter := ""
		if abuseErr.RetryAfter != nil {
			retryAfter = abuseErr.RetryAfter.String()
		}
		return apperrors.NewRateLimitError(retryAfter)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return apperrors.NewNotFoundError("Requested resource")
		case http.StatusForbidden, http.StatusTooManyRequests:
			return apperrors.NewRateLimitError("")
		}
	}

	return apperrors.NewUpstreamError("GitHub API request failed", err)
}
