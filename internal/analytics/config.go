package analytics

import "time"

// Config bounds every upstream fetch the analytics engine performs. Each
// sub-fetch carries its own budget so one slow call cannot starve the rest.
type Config struct {
	// SnapshotTimeout bounds the full repository snapshot query.
	SnapshotTimeout time.Duration
	// ContributorCountTimeout bounds the pagination-metadata count tier.
	ContributorCountTimeout time.Duration
	// ContributorProxyTimeout bounds the mentionable-users proxy tier.
	ContributorProxyTimeout time.Duration
	// InsightsFetchTimeout bounds each contributor-insights sub-fetch.
	InsightsFetchTimeout time.Duration
	// AggregateTimeout bounds the whole advanced-analytics fan-out.
	AggregateTimeout time.Duration

	// ContributorPageCap caps the contributors fetched per analysis.
	ContributorPageCap int
	// CommitPageCap caps the commits fetched per analysis window.
	CommitPageCap int
	// StargazerPageSize is the star-event sample size for growth history.
	StargazerPageSize int
	// HistoryMonths is the length of the monthly growth series.
	HistoryMonths int
	// DependencyCap caps manifest dependencies per type.
	DependencyCap int
	// CompareCap caps repositories per comparison request.
	CompareCap int

	// ActiveWindow is how recent a commit must be for a contributor to
	// count as active.
	ActiveWindow time.Duration
}

// DefaultConfig returns the standard fetch budgets and caps.
func DefaultConfig() Config {
	return Config{
		SnapshotTimeout:         15 * time.Second,
		ContributorCountTimeout: 8 * time.Second,
		ContributorProxyTimeout: 5 * time.Second,
		InsightsFetchTimeout:    10 * time.Second,
		AggregateTimeout:        30 * time.Second,
		ContributorPageCap:      50,
		CommitPageCap:           50,
		StargazerPageSize:       100,
		HistoryMonths:           12,
		DependencyCap:           20,
		CompareCap:              5,
		ActiveWindow:            28 * 24 * time.Hour,
	}
}
