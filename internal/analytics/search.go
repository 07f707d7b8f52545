package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/gateway"
	"github.com/repolens/repolens/internal/types"
)

// SearchRepositories runs a repository search and returns one page of
// results with pagination state.
func (s *Service) SearchRepositories(ctx context.Context, query string, limit int, cursor string) (*SearchResult, error) {
	if query == "" {
		return nil, apperrors.NewValidationError("search query must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	variables := map[string]interface{}{
		"searchQuery": query,
		"first":       limit,
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	var envelope gateway.SearchEnvelope
	if err := s.gw.Query(ctx, gateway.SearchRepositoriesQuery, variables, &envelope); err != nil {
		return nil, err
	}

	repositories := make([]Repository, 0, len(envelope.Search.Nodes))
	for i := range envelope.Search.Nodes {
		repositories = append(repositories, repositoryFromNode(&envelope.Search.Nodes[i]))
	}

	return &SearchResult{
		Repositories: repositories,
		TotalCount:   envelope.Search.RepositoryCount,
		HasNextPage:  envelope.Search.PageInfo.HasNextPage,
		EndCursor:    envelope.Search.PageInfo.EndCursor,
	}, nil
}

// GetTrendingRepositories searches for the most starred repositories created
// within the trending window, optionally narrowed to one language.
func (s *Service) GetTrendingRepositories(ctx context.Context, language string, period TrendingPeriod, limit int) ([]Repository, error) {
	var since time.Time
	now := s.now()
	switch period {
	case TrendingDay:
		since = now.AddDate(0, 0, -1)
	case TrendingMonth:
		since = now.AddDate(0, -1, 0)
	default:
		since = now.AddDate(0, 0, -7)
	}

	query := fmt.Sprintf("created:>%s sort:stars-desc", since.UTC().Format("2006-01-02"))
	if language != "" {
		query += " language:" + language
	}

	result, err := s.SearchRepositories(ctx, query, limit, "")
	if err != nil {
		return nil, err
	}

	return result.Repositories, nil
}

// CompareRepositories fetches snapshots for each referenced repository
// concurrently. Any single failure fails the comparison: a partial
// side-by-side is worse than an error the caller can retry.
func (s *Service) CompareRepositories(ctx context.Context, refs []types.RepoRef) ([]*RepositoryStats, error) {
	if len(refs) == 0 {
		return nil, apperrors.NewValidationError("at least one repository is required")
	}
	if len(refs) > s.cfg.CompareCap {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("at most %d repositories can be compared at once", s.cfg.CompareCap))
	}

	results := make([]*RepositoryStats, len(refs))
	errs := make([]error, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref types.RepoRef) {
			defer wg.Done()
			results[i], errs[i] = s.GetRepositoryStats(ctx, ref.Owner, ref.Name)
		}(i, ref)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
