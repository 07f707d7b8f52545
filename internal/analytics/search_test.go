package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/gateway"
	"github.com/repolens/repolens/internal/types"
)

func TestSearchRepositories(t *testing.T) {
	t.Run("empty query is a validation error", func(t *testing.T) {
		svc := newTestService(&fakeGateway{}, time.Now())
		_, err := svc.SearchRepositories(context.Background(), "", 10, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryValidation))
	})

	t.Run("maps results and pagination state", func(t *testing.T) {
		gw := &fakeGateway{
			queryFn: func(_ context.Context, _ string, vars map[string]interface{}, out interface{}) error {
				assert.Equal(t, "kafka language:Go", vars["searchQuery"])
				assert.Equal(t, 5, vars["first"])
				assert.Equal(t, "cursor123", vars["after"])

				env := out.(*gateway.SearchEnvelope)
				env.Search.RepositoryCount = 42
				env.Search.PageInfo = gateway.PageInfo{HasNextPage: true, EndCursor: "cursor456"}
				env.Search.Nodes = []gateway.RepositoryNode{
					{ID: "R_1", Name: "franz", NameWithOwner: "acme/franz", StargazerCount: 700},
				}
				return nil
			},
		}

		svc := newTestService(gw, time.Now())
		result, err := svc.SearchRepositories(context.Background(), "kafka language:Go", 5, "cursor123")
		require.NoError(t, err)

		assert.Equal(t, 42, result.TotalCount)
		assert.True(t, result.HasNextPage)
		assert.Equal(t, "cursor456", result.EndCursor)
		require.Len(t, result.Repositories, 1)
		assert.Equal(t, "acme/franz", result.Repositories[0].FullName)
	})

	t.Run("non positive limit defaults to ten", func(t *testing.T) {
		gw := &fakeGateway{
			queryFn: func(_ context.Context, _ string, vars map[string]interface{}, out interface{}) error {
				assert.Equal(t, 10, vars["first"])
				_, hasCursor := vars["after"]
				assert.False(t, hasCursor)
				return nil
			},
		}

		svc := newTestService(gw, time.Now())
		_, err := svc.SearchRepositories(context.Background(), "kafka", 0, "")
		require.NoError(t, err)
	})
}

func TestGetTrendingRepositories(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    TrendingPeriod
		language  string
		wantQuery string
	}{
		{"day window", TrendingDay, "", "created:>2024-05-14 sort:stars-desc"},
		{"week window", TrendingWeek, "", "created:>2024-05-08 sort:stars-desc"},
		{"month window", TrendingMonth, "", "created:>2024-04-15 sort:stars-desc"},
		{"language filter", TrendingWeek, "Go", "created:>2024-05-08 sort:stars-desc language:Go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			gw := &fakeGateway{
				queryFn: func(_ context.Context, _ string, vars map[string]interface{}, _ interface{}) error {
					gotQuery = vars["searchQuery"].(string)
					return nil
				},
			}

			svc := newTestService(gw, now)
			_, err := svc.GetTrendingRepositories(context.Background(), tt.language, tt.period, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, gotQuery)
		})
	}
}

func TestParseTrendingPeriod(t *testing.T) {
	got, err := ParseTrendingPeriod("")
	require.NoError(t, err)
	assert.Equal(t, TrendingWeek, got)

	got, err = ParseTrendingPeriod("day")
	require.NoError(t, err)
	assert.Equal(t, TrendingDay, got)

	_, err = ParseTrendingPeriod("decade")
	assert.Error(t, err)
}

func TestCompareRepositories(t *testing.T) {
	t.Run("empty list is a validation error", func(t *testing.T) {
		svc := newTestService(&fakeGateway{}, time.Now())
		_, err := svc.CompareRepositories(context.Background(), nil)
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryValidation))
	})

	t.Run("too many repositories is a validation error", func(t *testing.T) {
		refs := make([]types.RepoRef, 6)
		for i := range refs {
			refs[i] = types.RepoRef{Owner: "acme", Name: "repo"}
		}

		svc := newTestService(&fakeGateway{}, time.Now())
		_, err := svc.CompareRepositories(context.Background(), refs)
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryValidation))
	})

	t.Run("results keep request order", func(t *testing.T) {
		gw := &fakeGateway{
			queryFn: func(_ context.Context, _ string, vars map[string]interface{}, out interface{}) error {
				if env, ok := out.(*gateway.RepositoryEnvelope); ok {
					node := testRepositoryNode()
					node.NameWithOwner = vars["owner"].(string) + "/" + vars["name"].(string)
					env.Repository = node
					return nil
				}
				return errNotStubbed("Query")
			},
		}

		svc := newTestService(gw, time.Now())
		results, err := svc.CompareRepositories(context.Background(), []types.RepoRef{
			{Owner: "acme", Name: "streamer"},
			{Owner: "rival", Name: "pipe"},
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "acme/streamer", results[0].Repository.FullName)
		assert.Equal(t, "rival/pipe", results[1].Repository.FullName)
	})

	t.Run("single failure fails the comparison", func(t *testing.T) {
		gw := &fakeGateway{
			queryFn: func(_ context.Context, _ string, vars map[string]interface{}, out interface{}) error {
				if vars["owner"] == "ghost" {
					return apperrors.NewNotFoundError("Requested resource")
				}
				if env, ok := out.(*gateway.RepositoryEnvelope); ok {
					env.Repository = testRepositoryNode()
				}
				return nil
			},
		}

		svc := newTestService(gw, time.Now())
		_, err := svc.CompareRepositories(context.Background(), []types.RepoRef{
			{Owner: "acme", Name: "streamer"},
			{Owner: "ghost", Name: "missing"},
		})
		assert.True(t, apperrors.IsNotFound(err))
	})
}
