package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-github/v62/github"

	apperrors "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/gateway"
	"github.com/repolens/repolens/internal/resilience"
)

// Gateway is the slice of the GitHub gateway the analytics engine consumes.
// Tests substitute a fake; production wires *gateway.Client.
type Gateway interface {
	Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error
	ListContributors(ctx context.Context, owner, repo string, perPage int) ([]*github.Contributor, int, error)
	ListCommits(ctx context.Context, owner, repo string, opts gateway.CommitListOptions) ([]*github.RepositoryCommit, error)
	ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error)
	GetFileContent(ctx context.Context, owner, repo, path string) ([]byte, error)
	ListStargazers(ctx context.Context, owner, repo string, perPage int) ([]*github.Stargazer, error)
	ListCommitActivity(ctx context.Context, owner, repo string) ([]*github.WeeklyCommitActivity, error)
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error)
}

// Service implements the repository analytics engine. It holds no state
// between calls; every analysis re-fetches from the gateway.
type Service struct {
	gw  Gateway
	cfg Config
	log *slog.Logger

	// now is injectable so time-window logic is testable.
	now func() time.Time
}

// NewService creates an analytics service over the given gateway.
func NewService(gw Gateway, cfg Config) *Service {
	return &Service{
		gw:  gw,
		cfg: cfg,
		log: slog.With("component", "analytics"),
		now: time.Now,
	}
}

// GetRepositoryStats fetches the repository snapshot: metadata plus headline
// counts in a single structured query, with the contributor count resolved
// through its own fallback chain. NotFound, Timeout and RateLimited failures
// propagate verbatim so the boundary can map them onto exact statuses.
func (s *Service) GetRepositoryStats(ctx context.Context, owner, name string) (*RepositoryStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
	defer cancel()

	var envelope gateway.RepositoryEnvelope
	err := s.gw.Query(ctx, gateway.RepositoryQuery(s.now()), map[string]interface{}{
		"owner": owner,
		"name":  name,
	}, &envelope)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("Repository %s/%s", owner, name))
		}
		if apperrors.IsTimeout(err) || apperrors.IsRateLimited(err) {
			return nil, err
		}
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("failed to fetch repository %s/%s", owner, name), err)
	}
	if envelope.Repository == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Repository %s/%s", owner, name))
	}

	node := envelope.Repository
	stats := &RepositoryStats{
		Repository:   repositoryFromNode(node),
		Contributors: s.contributorCount(ctx, owner, name),
		Releases:     node.Releases.TotalCount,
		Issues: IssueCounts{
			Open:   node.Issues.TotalCount,
			Closed: node.ClosedIssues.TotalCount,
		},
		PullRequests: PullRequestCounts{
			Open:   node.PullRequests.TotalCount,
			Closed: node.ClosedPRs.TotalCount,
			Merged: node.MergedPRs.TotalCount,
		},
	}
	if node.DefaultBranch != nil && node.DefaultBranch.Target != nil {
		stats.Commits = CommitCounts{
			Total:     node.DefaultBranch.Target.History.TotalCount,
			LastMonth: node.DefaultBranch.Target.HistoryLastMonth.TotalCount,
		}
	}

	return stats, nil
}

// contributorCount resolves the contributor count through a two-tier fallback
// chain. Tier one reads the last page number off the single-item contributor
// listing; tier two falls back to the mentionable-users proxy. Exhaustion
// yields 0, never an error: the count is advisory and must not sink the
// snapshot.
func (s *Service) contributorCount(ctx context.Context, owner, name string) int {
	return resilience.RunFallbackChainWithDefault(ctx, "contributor-count", 0, []resilience.Strategy[int]{
		{
			Name:    "pagination-metadata",
			Timeout: s.cfg.ContributorCountTimeout,
			Run: func(ctx context.Context) (int, error) {
				contributors, lastPage, err := s.gw.ListContributors(ctx, owner, name, 1)
				if err != nil {
					return 0, err
				}
				if lastPage > 0 {
					return lastPage, nil
				}
				return len(contributors), nil
			},
		},
		{
			Name:    "mentionable-users",
			Timeout: s.cfg.ContributorProxyTimeout,
			Run: func(ctx context.Context) (int, error) {
				var envelope gateway.MentionableUsersEnvelope
				err := s.gw.Query(ctx, gateway.ContributorCountQuery, map[string]interface{}{
					"owner": owner,
					"name":  name,
				}, &envelope)
				if err != nil {
					return 0, err
				}
				if envelope.Repository == nil {
					return 0, apperrors.NewNotFoundError(fmt.Sprintf("Repository %s/%s", owner, name))
				}
				return envelope.Repository.MentionableUsers.TotalCount, nil
			},
		},
	})
}

// GetAdvancedAnalytics assembles the aggregate analysis: snapshot, growth
// history, contributor list, technology stack and risk assessment. The four
// secondary analyses fan out concurrently and degrade independently; a branch
// failure zeroes that branch, never the response. Only a snapshot failure
// that also survives the minimal fallback chain fails the operation.
func (s *Service) GetAdvancedAnalytics(ctx context.Context, owner, name string) (*AdvancedAnalytics, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AggregateTimeout)
	defer cancel()

	stats, err := s.GetRepositoryStats(ctx, owner, name)
	if err != nil {
		repo, fallbackErr := s.getMinimalRepository(ctx, owner, name)
		if fallbackErr != nil {
			return nil, err
		}
		s.log.Warn("Serving minimal analytics after snapshot failure",
			"repo", owner+"/"+name, "error", err)
		return &AdvancedAnalytics{
			Repository:   repo,
			Contributors: []ContributorSummary{},
			Historical:   []HistoricalPoint{},
			TechnologyStack: TechnologyStack{
				Languages:    []LanguageStat{},
				Dependencies: []Dependency{},
				Frameworks:   []string{},
			},
			RiskAssessment: neutralRiskAssessment(s.now()),
		}, nil
	}

	var (
		wg           sync.WaitGroup
		historical   []HistoricalPoint
		contributors []ContributorSummary
		tech         TechnologyStack
		risk         RiskAssessment
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		points, err := s.GetHistoricalData(ctx, owner, name)
		if err != nil {
			s.log.Warn("Historical data unavailable", "repo", owner+"/"+name, "error", err)
			points = []HistoricalPoint{}
		}
		historical = points
	}()
	go func() {
		defer wg.Done()
		list, err := s.getContributorList(ctx, owner, name)
		if err != nil {
			s.log.Warn("Contributor list unavailable", "repo", owner+"/"+name, "error", err)
			list = []ContributorSummary{}
		}
		contributors = list
	}()
	go func() {
		defer wg.Done()
		stack, err := s.GetTechnologyStack(ctx, owner, name)
		if err != nil {
			s.log.Warn("Technology stack unavailable", "repo", owner+"/"+name, "error", err)
		}
		tech = stack
	}()
	go func() {
		defer wg.Done()
		risk = s.GetRiskAssessment(ctx, owner, name)
	}()
	wg.Wait()

	return &AdvancedAnalytics{
		Repository:      stats.Repository,
		Contributors:    contributors,
		Releases:        stats.Releases,
		Issues:          stats.Issues,
		PullRequests:    stats.PullRequests,
		Commits:         stats.Commits,
		Historical:      historical,
		TechnologyStack: tech,
		RiskAssessment:  risk,
		Trends:          CalculateTrends(historical),
	}, nil
}

// getMinimalRepository is the last line of defense for the aggregate
// endpoint: a reduced GraphQL query, then a plain REST fetch.
func (s *Service) getMinimalRepository(ctx context.Context, owner, name string) (Repository, error) {
	return resilience.RunFallbackChain(ctx, "minimal-repository", []resilience.Strategy[Repository]{
		{
			Name:    "minimal-graphql",
			Timeout: s.cfg.ContributorProxyTimeout,
			Run: func(ctx context.Context) (Repository, error) {
				var envelope gateway.RepositoryEnvelope
				err := s.gw.Query(ctx, gateway.MinimalRepositoryQuery, map[string]interface{}{
					"owner": owner,
					"name":  name,
				}, &envelope)
				if err != nil {
					return Repository{}, err
				}
				if envelope.Repository == nil {
					return Repository{}, apperrors.NewNotFoundError(fmt.Sprintf("Repository %s/%s", owner, name))
				}
				return repositoryFromNode(envelope.Repository), nil
			},
		},
		{
			Name:    "rest-get",
			Timeout: s.cfg.ContributorProxyTimeout,
			Run: func(ctx context.Context) (Repository, error) {
				repo, err := s.gw.GetRepository(ctx, owner, name)
				if err != nil {
					return Repository{}, err
				}
				return repositoryFromREST(repo), nil
			},
		},
	})
}

// getContributorList fetches the coarse contributor list for the aggregate
// response, capped at the contributor page cap.
func (s *Service) getContributorList(ctx context.Context, owner, name string) ([]ContributorSummary, error) {
	contributors, _, err := s.gw.ListContributors(ctx, owner, name, s.cfg.ContributorPageCap)
	if err != nil {
		return nil, err
	}

	summaries := make([]ContributorSummary, 0, len(contributors))
	for _, c := range contributors {
		summaries = append(summaries, ContributorSummary{
			Login:         c.GetLogin(),
			AvatarURL:     c.GetAvatarURL(),
			Contributions: c.GetContributions(),
			Type:          c.GetType(),
		})
	}

	return summaries, nil
}

// repositoryFromNode maps a GraphQL repository node onto the domain snapshot.
func repositoryFromNode(node *gateway.RepositoryNode) Repository {
	repo := Repository{
		ID:         node.ID,
		Name:       node.Name,
		FullName:   node.NameWithOwner,
		URL:        node.URL,
		Stars:      node.StargazerCount,
		Forks:      node.ForkCount,
		Watchers:   node.Watchers.TotalCount,
		Topics:     make([]string, 0, len(node.Topics.Nodes)),
		CreatedAt:  node.CreatedAt,
		UpdatedAt:  node.UpdatedAt,
		IsArchived: node.IsArchived,
		IsPrivate:  node.IsPrivate,
		Owner: Owner{
			Login:     node.Owner.Login,
			Type:      node.Owner.TypeName,
			AvatarURL: node.Owner.AvatarURL,
		},
	}

	if node.Description != nil {
		repo.Description = *node.Description
	}
	if node.PrimaryLanguage != nil {
		repo.Language = node.PrimaryLanguage.Name
	}
	if node.PushedAt != nil {
		repo.PushedAt = *node.PushedAt
	}
	if repo.Owner.Type == "" {
		repo.Owner.Type = "User"
	}
	for _, t := range node.Topics.Nodes {
		repo.Topics = append(repo.Topics, t.Topic.Name)
	}
	if node.LicenseInfo != nil {
		repo.License = &License{Name: node.LicenseInfo.Name, Key: node.LicenseInfo.Key}
	}

	return repo
}

// repositoryFromREST maps a REST repository onto the domain snapshot. Only
// the minimal fallback tier uses this shape.
func repositoryFromREST(r *github.Repository) Repository {
	repo := Repository{
		ID:          fmt.Sprintf("%d", r.GetID()),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		URL:         r.GetHTMLURL(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Watchers:    r.GetSubscribersCount(),
		Language:    r.GetLanguage(),
		Topics:      r.Topics,
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
		PushedAt:    r.GetPushedAt().Time,
		IsArchived:  r.GetArchived(),
		IsPrivate:   r.GetPrivate(),
		Owner: Owner{
			Login:     r.GetOwner().GetLogin(),
			Type:      r.GetOwner().GetType(),
			AvatarURL: r.GetOwner().GetAvatarURL(),
		},
	}
	if repo.Topics == nil {
		repo.Topics = []string{}
	}
	if lic := r.GetLicense(); lic != nil {
		repo.License = &License{Name: lic.GetName(), Key: lic.GetKey()}
	}

	return repo
}
