package analytics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/gateway"
)

// fakeGateway stubs the GitHub gateway with per-call functions. Unstubbed
// calls fail with an upstream error so tests exercise degradation paths by
// default.
type fakeGateway struct {
	queryFn              func(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error
	listContributorsFn   func(ctx context.Context, owner, repo string, perPage int) ([]*github.Contributor, int, error)
	listCommitsFn        func(ctx context.Context, owner, repo string, opts gateway.CommitListOptions) ([]*github.RepositoryCommit, error)
	listLanguagesFn      func(ctx context.Context, owner, repo string) (map[string]int, error)
	getFileContentFn     func(ctx context.Context, owner, repo, path string) ([]byte, error)
	listStargazersFn     func(ctx context.Context, owner, repo string, perPage int) ([]*github.Stargazer, error)
	listCommitActivityFn func(ctx context.Context, owner, repo string) ([]*github.WeeklyCommitActivity, error)
	getRepositoryFn      func(ctx context.Context, owner, repo string) (*github.Repository, error)
}

func errNotStubbed(what string) error {
	return apperrors.NewUpstreamError(what+" not stubbed", nil)
}

func (f *fakeGateway) Query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if f.queryFn != nil {
		return f.queryFn(ctx, query, vars, out)
	}
	return errNotStubbed("Query")
}

func (f *fakeGateway) ListContributors(ctx context.Context, owner, repo string, perPage int) ([]*github.Contributor, int, error) {
	if f.listContributorsFn != nil {
		return f.listContributorsFn(ctx, owner, repo, perPage)
	}
	return nil, 0, errNotStubbed("ListContributors")
}

func (f *fakeGateway) ListCommits(ctx context.Context, owner, repo string, opts gateway.CommitListOptions) ([]*github.RepositoryCommit, error) {
	if f.listCommitsFn != nil {
		return f.listCommitsFn(ctx, owner, repo, opts)
	}
	return nil, errNotStubbed("ListCommits")
}

func (f *fakeGateway) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	if f.listLanguagesFn != nil {
		return f.listLanguagesFn(ctx, owner, repo)
	}
	return nil, errNotStubbed("ListLanguages")
}

func (f *fakeGateway) GetFileContent(ctx context.Context, owner, repo, path string) ([]byte, error) {
	if f.getFileContentFn != nil {
		return f.getFileContentFn(ctx, owner, repo, path)
	}
	return nil, errNotStubbed("GetFileContent")
}

func (f *fakeGateway) ListStargazers(ctx context.Context, owner, repo string, perPage int) ([]*github.Stargazer, error) {
	if f.listStargazersFn != nil {
		return f.listStargazersFn(ctx, owner, repo, perPage)
	}
	return nil, errNotStubbed("ListStargazers")
}

func (f *fakeGateway) ListCommitActivity(ctx context.Context, owner, repo string) ([]*github.WeeklyCommitActivity, error) {
	if f.listCommitActivityFn != nil {
		return f.listCommitActivityFn(ctx, owner, repo)
	}
	return nil, errNotStubbed("ListCommitActivity")
}

func (f *fakeGateway) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	if f.getRepositoryFn != nil {
		return f.getRepositoryFn(ctx, owner, repo)
	}
	return nil, errNotStubbed("GetRepository")
}

func newTestService(gw Gateway, now time.Time) *Service {
	svc := NewService(gw, DefaultConfig())
	svc.now = func() time.Time { return now }
	return svc
}

func testRepositoryNode() *gateway.RepositoryNode {
	description := "Distributed streaming platform"
	language := "Go"
	pushedAt := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

	node := &gateway.RepositoryNode{
		ID:              "R_1",
		Name:            "streamer",
		NameWithOwner:   "acme/streamer",
		Description:     &description,
		URL:             "https://github.com/acme/streamer",
		StargazerCount:  1200,
		ForkCount:       180,
		Watchers:        gateway.CountNode{TotalCount: 95},
		PrimaryLanguage: &gateway.NameNode{Name: language},
		CreatedAt:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC),
		PushedAt:        &pushedAt,
		Owner:           gateway.OwnerNode{Login: "acme", TypeName: "Organization", AvatarURL: "https://avatars.test/acme"},
		LicenseInfo:     &gateway.LicenseNode{Name: "MIT License", Key: "mit"},
		Releases:        gateway.CountNode{TotalCount: 14},
		Issues:          gateway.CountNode{TotalCount: 42},
		ClosedIssues:    gateway.CountNode{TotalCount: 310},
		PullRequests:    gateway.CountNode{TotalCount: 7},
		ClosedPRs:       gateway.CountNode{TotalCount: 120},
		MergedPRs:       gateway.CountNode{TotalCount: 450},
	}
	node.Topics.Nodes = []struct {
		Topic gateway.NameNode `json:"topic"`
	}{
		{Topic: gateway.NameNode{Name: "streaming"}},
		{Topic: gateway.NameNode{Name: "distributed-systems"}},
	}
	node.DefaultBranch = &struct {
		Target *gateway.CommitHistoryTarget `json:"target"`
	}{
		Target: &gateway.CommitHistoryTarget{
			History:          gateway.CountNode{TotalCount: 5400},
			HistoryLastMonth: gateway.CountNode{TotalCount: 87},
		},
	}

	return node
}

func TestGetRepositoryStats(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	gw := &fakeGateway{
		queryFn: func(_ context.Context, query string, vars map[string]interface{}, out interface{}) error {
			require.Equal(t, "acme", vars["owner"])
			require.Equal(t, "streamer", vars["name"])
			env, ok := out.(*gateway.RepositoryEnvelope)
			require.True(t, ok)
			env.Repository = testRepositoryNode()
			return nil
		},
		listContributorsFn: func(_ context.Context, _, _ string, perPage int) ([]*github.Contributor, int, error) {
			assert.Equal(t, 1, perPage)
			return []*github.Contributor{{Login: github.String("alice")}}, 42, nil
		},
	}

	svc := newTestService(gw, now)
	stats, err := svc.GetRepositoryStats(context.Background(), "acme", "streamer")
	require.NoError(t, err)

	assert.Equal(t, "acme/streamer", stats.Repository.FullName)
	assert.Equal(t, "Distributed streaming platform", stats.Repository.Description)
	assert.Equal(t, "Go", stats.Repository.Language)
	assert.Equal(t, []string{"streaming", "distributed-systems"}, stats.Repository.Topics)
	assert.Equal(t, 1200, stats.Repository.Stars)
	assert.Equal(t, 95, stats.Repository.Watchers)
	assert.Equal(t, "Organization", stats.Repository.Owner.Type)
	require.NotNil(t, stats.Repository.License)
	assert.Equal(t, "mit", stats.Repository.License.Key)

	assert.Equal(t, 42, stats.Contributors)
	assert.Equal(t, 14, stats.Releases)
	assert.Equal(t, IssueCounts{Open: 42, Closed: 310}, stats.Issues)
	assert.Equal(t, PullRequestCounts{Open: 7, Closed: 120, Merged: 450}, stats.PullRequests)
	assert.Equal(t, CommitCounts{Total: 5400, LastMonth: 87}, stats.Commits)
}

func TestGetRepositoryStatsNotFound(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, _ interface{}) error {
			return apperrors.NewNotFoundError("Requested resource")
		},
	}

	svc := newTestService(gw, time.Now())
	_, err := svc.GetRepositoryStats(context.Background(), "ghost", "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "ghost/missing")
}

func TestGetRepositoryStatsNilRepository(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, out interface{}) error {
			// Upstream answered but the repository field is null.
			return nil
		},
	}

	svc := newTestService(gw, time.Now())
	_, err := svc.GetRepositoryStats(context.Background(), "ghost", "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestContributorCountFallsBackToProxy(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, out interface{}) error {
			switch env := out.(type) {
			case *gateway.RepositoryEnvelope:
				env.Repository = testRepositoryNode()
				return nil
			case *gateway.MentionableUsersEnvelope:
				env.Repository = &struct {
					MentionableUsers gateway.CountNode `json:"mentionableUsers"`
				}{MentionableUsers: gateway.CountNode{TotalCount: 321}}
				return nil
			default:
				return errNotStubbed("Query")
			}
		},
		listContributorsFn: func(_ context.Context, _, _ string, _ int) ([]*github.Contributor, int, error) {
			return nil, 0, apperrors.NewTimeoutError("GitHub API request timed out", nil)
		},
	}

	svc := newTestService(gw, time.Now())
	stats, err := svc.GetRepositoryStats(context.Background(), "acme", "streamer")
	require.NoError(t, err)
	assert.Equal(t, 321, stats.Contributors)
}

func TestContributorCountExhaustedDefaultsToZero(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, out interface{}) error {
			if env, ok := out.(*gateway.RepositoryEnvelope); ok {
				env.Repository = testRepositoryNode()
				return nil
			}
			return apperrors.NewUpstreamError("GraphQL unavailable", nil)
		},
	}

	svc := newTestService(gw, time.Now())
	stats, err := svc.GetRepositoryStats(context.Background(), "acme", "streamer")
	require.NoError(t, err)
	assert.Zero(t, stats.Contributors)
}

func TestContributorCountSinglePageUsesLength(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, out interface{}) error {
			if env, ok := out.(*gateway.RepositoryEnvelope); ok {
				env.Repository = testRepositoryNode()
			}
			return nil
		},
		listContributorsFn: func(_ context.Context, _, _ string, _ int) ([]*github.Contributor, int, error) {
			// Single page listing: no pagination metadata.
			return []*github.Contributor{{Login: github.String("alice")}}, 0, nil
		},
	}

	svc := newTestService(gw, time.Now())
	stats, err := svc.GetRepositoryStats(context.Background(), "acme", "streamer")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Contributors)
}

func TestGetAdvancedAnalyticsDegradesPerBranch(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, out interface{}) error {
			if env, ok := out.(*gateway.RepositoryEnvelope); ok {
				env.Repository = testRepositoryNode()
				return nil
			}
			return errNotStubbed("Query")
		},
		listContributorsFn: func(_ context.Context, _, _ string, _ int) ([]*github.Contributor, int, error) {
			return []*github.Contributor{
				{Login: github.String("alice"), Contributions: github.Int(90), Type: github.String("User")},
				{Login: github.String("bob"), Contributions: github.Int(10), Type: github.String("User")},
			}, 2, nil
		},
		// Historical, tech stack and risk branches all fail upstream.
	}

	svc := newTestService(gw, now)
	result, err := svc.GetAdvancedAnalytics(context.Background(), "acme", "streamer")
	require.NoError(t, err)

	assert.Equal(t, "acme/streamer", result.Repository.FullName)
	require.Len(t, result.Contributors, 2)
	assert.Equal(t, "alice", result.Contributors[0].Login)

	assert.Empty(t, result.Historical)
	assert.Empty(t, result.TechnologyStack.Languages)
	assert.Equal(t, Trends{}, result.Trends)

	// Risk degrades to the neutral assessment.
	assert.Equal(t, 50, result.RiskAssessment.BusFactor.Score)
	assert.Equal(t, "Unable to assess contributor distribution", result.RiskAssessment.BusFactor.Description)
}

func TestGetAdvancedAnalyticsMinimalFallback(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, query string, _ map[string]interface{}, out interface{}) error {
			if strings.Contains(query, "GetMinimalRepository") {
				env := out.(*gateway.RepositoryEnvelope)
				env.Repository = testRepositoryNode()
				return nil
			}
			return apperrors.NewUpstreamError("GraphQL unavailable", nil)
		},
	}

	svc := newTestService(gw, time.Now())
	result, err := svc.GetAdvancedAnalytics(context.Background(), "acme", "streamer")
	require.NoError(t, err)

	assert.Equal(t, "acme/streamer", result.Repository.FullName)
	assert.Empty(t, result.Contributors)
	assert.Empty(t, result.Historical)
	assert.Zero(t, result.Releases)
	assert.Equal(t, 50, result.RiskAssessment.MaintenanceStatus.Score)
}

func TestGetAdvancedAnalyticsRESTFallback(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, _ interface{}) error {
			return apperrors.NewUpstreamError("GraphQL unavailable", nil)
		},
		getRepositoryFn: func(_ context.Context, owner, repo string) (*github.Repository, error) {
			return &github.Repository{
				ID:              github.Int64(99),
				Name:            github.String("streamer"),
				FullName:        github.String("acme/streamer"),
				StargazersCount: github.Int(1200),
				Owner:           &github.User{Login: github.String("acme"), Type: github.String("Organization")},
			}, nil
		},
	}

	svc := newTestService(gw, time.Now())
	result, err := svc.GetAdvancedAnalytics(context.Background(), "acme", "streamer")
	require.NoError(t, err)
	assert.Equal(t, "99", result.Repository.ID)
	assert.Equal(t, 1200, result.Repository.Stars)
	assert.NotNil(t, result.Repository.Topics)
}

func TestGetAdvancedAnalyticsAllTiersFail(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(_ context.Context, _ string, _ map[string]interface{}, _ interface{}) error {
			return apperrors.NewNotFoundError("Requested resource")
		},
		getRepositoryFn: func(_ context.Context, _, _ string) (*github.Repository, error) {
			return nil, apperrors.NewNotFoundError("Requested resource")
		},
	}

	svc := newTestService(gw, time.Now())
	_, err := svc.GetAdvancedAnalytics(context.Background(), "ghost", "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRepositoryFromNodeDefaults(t *testing.T) {
	node := &gateway.RepositoryNode{
		ID:            "R_2",
		Name:          "bare",
		NameWithOwner: "acme/bare",
		Owner:         gateway.OwnerNode{Login: "acme"},
	}

	repo := repositoryFromNode(node)
	assert.Empty(t, repo.Description)
	assert.Empty(t, repo.Language)
	assert.True(t, repo.PushedAt.IsZero())
	assert.Nil(t, repo.License)
	assert.Equal(t, "User", repo.Owner.Type)
	assert.NotNil(t, repo.Topics)
	assert.Empty(t, repo.Topics)
}
