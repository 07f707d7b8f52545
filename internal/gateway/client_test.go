package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repolens/repolens/internal/errors"
)

func restTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:    server.URL + "/",
		GraphQLURL: server.URL + "/graphql",
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestListContributorsPaginationMetadata(t *testing.T) {
	client := restTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.Contains(r.URL.Path, "/repos/acme/streamer/contributors"))
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))

		w.Header().Set("Link", fmt.Sprintf(
			`<http://%s/api/v3/repos/acme/streamer/contributors?page=2&per_page=1>; rel="next", `+
				`<http://%s/api/v3/repos/acme/streamer/contributors?page=42&per_page=1>; rel="last"`,
			r.Host, r.Host))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"login": "alice", "contributions": 90}]`))
	}))

	contributors, lastPage, err := client.ListContributors(context.Background(), "acme", "streamer", 1)
	require.NoError(t, err)
	require.Len(t, contributors, 1)
	assert.Equal(t, "alice", contributors[0].GetLogin())
	assert.Equal(t, 42, lastPage)
}

func TestListContributorsSinglePage(t *testing.T) {
	client := restTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"login": "alice"}, {"login": "bob"}]`))
	}))

	contributors, lastPage, err := client.ListContributors(context.Background(), "acme", "streamer", 100)
	require.NoError(t, err)
	assert.Len(t, contributors, 2)
	assert.Zero(t, lastPage)
}

func TestListCommitsWindow(t *testing.T) {
	since := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	client := restTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		assert.NotEmpty(t, r.URL.Query().Get("until"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"sha": "abc123"}]`))
	}))

	commits, err := client.ListCommits(context.Background(), "acme", "streamer", CommitListOptions{
		Since:   since,
		Until:   until,
		PerPage: 50,
	})
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc123", commits[0].GetSHA())
}

func TestGetFileContentDecodesBase64(t *testing.T) {
	client := restTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.Contains(r.URL.Path, "/contents/package.json"))
		w.Header().Set("Content-Type", "application/json")
		// base64 for {"name":"demo"}
		w.Write([]byte(`{"type": "file", "encoding": "base64", "content": "eyJuYW1lIjoiZGVtbyJ9"}`))
	}))

	content, err := client.GetFileContent(context.Background(), "acme", "streamer", "package.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "demo"}`, string(content))
}

func TestRESTNotFound(t *testing.T) {
	client := restTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))

	_, err := client.ListLanguages(context.Background(), "ghost", "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestClassifyRESTError(t *testing.T) {
	background := context.Background()

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, classifyRESTError(background, nil))
	})

	t.Run("canceled context is a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(background)
		cancel()
		err := classifyRESTError(ctx, errors.New("request canceled"))
		assert.True(t, apperrors.IsTimeout(err))
	})

	t.Run("rate limit error", func(t *testing.T) {
		err := classifyRESTError(background, &github.RateLimitError{
			Rate: github.Rate{Reset: github.Timestamp{Time: time.Now().Add(time.Minute)}},
		})
		assert.True(t, apperrors.IsRateLimited(err))
	})

	t.Run("abuse rate limit error", func(t *testing.T) {
		err := classifyRESTError(background, &github.AbuseRateLimitError{})
		assert.True(t, apperrors.IsRateLimited(err))
	})

	t.Run("404 response", func(t *testing.T) {
		err := classifyRESTError(background, &github.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusNotFound},
		})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("403 response", func(t *testing.T) {
		err := classifyRESTError(background, &github.ErrorResponse{
			Response: &http.Response{StatusCode: http.StatusForbidden},
		})
		assert.True(t, apperrors.IsRateLimited(err))
	})

	t.Run("anything else is upstream", func(t *testing.T) {
		err := classifyRESTError(background, errors.New("connection reset"))
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryUpstream))
	})
}

func TestRepositoryQueryEmbedsCutoff(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	query := RepositoryQuery(now)
	assert.Contains(t, query, `"2024-04-15T12:00:00Z"`)
	assert.Contains(t, query, "historyLastMonth")
}
