package analytics

import (
	"fmt"
	"time"
)

// Owner identifies the user or organization that owns a repository.
type Owner struct {
	Login     string `json:"login"`
	Type      string `json:"type"`
	AvatarURL string `json:"avatarUrl"`
}

// License is the repository license. Nil when the repository is unlicensed.
type License struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Repository is an immutable snapshot of upstream repository state at fetch
// time. Nothing is persisted; every request re-fetches.
type Repository struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"fullName"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Stars       int       `json:"stargazerCount"`
	Forks       int       `json:"forkCount"`
	Watchers    int       `json:"watcherCount"`
	Language    string    `json:"language"`
	Topics      []string  `json:"topics"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	PushedAt    time.Time `json:"pushedAt"`
	IsArchived  bool      `json:"isArchived"`
	IsPrivate   bool      `json:"isPrivate"`
	Owner       Owner     `json:"owner"`
	License     *License  `json:"license,omitempty"`
}

// IssueCounts splits issues by state.
type IssueCounts struct {
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

// PullRequestCounts splits pull requests by state.
type PullRequestCounts struct {
	Open   int `json:"open"`
	Closed int `json:"closed"`
	Merged int `json:"merged"`
}

// CommitCounts carries default-branch commit totals.
type CommitCounts struct {
	Total     int `json:"total"`
	LastMonth int `json:"lastMonth"`
}

// RepositoryStats is a repository snapshot with its headline counts.
// Contributor count is best-effort (see the fallback chain in service.go).
type RepositoryStats struct {
	Repository   Repository        `json:"repository"`
	Contributors int               `json:"contributors"`
	Releases     int               `json:"releases"`
	Issues       IssueCounts       `json:"issues"`
	PullRequests PullRequestCounts `json:"pullRequests"`
	Commits      CommitCounts      `json:"commits"`
}

// HistoricalPoint is one calendar month of growth history. Stars is the
// running cumulative count of observed star events; Commits is the month's
// commit total.
type HistoricalPoint struct {
	Month   string `json:"date"` // YYYY-MM
	Stars   int    `json:"stars"`
	Forks   int    `json:"forks"`
	Commits int    `json:"commits"`
}

// ContributorSummary is the coarse per-contributor record used by the
// aggregate analytics response.
type ContributorSummary struct {
	Login         string `json:"login"`
	AvatarURL     string `json:"avatarUrl"`
	Contributions int    `json:"contributions"`
	Type          string `json:"type"`
}

// WeeklyCommits is one Monday-aligned week of a contributor's history.
// Additions and deletions stay zero: per-commit diffs are not fetched in
// bulk, to avoid a call per commit.
type WeeklyCommits struct {
	Week      string `json:"week"` // YYYY-MM-DD, Monday
	Commits   int    `json:"commits"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// DetailedContributor is one contributor's profile for a single analysis
// window. Profiles are rebuilt from scratch per window, never merged.
type DetailedContributor struct {
	Login          string          `json:"login"`
	AvatarURL      string          `json:"avatarUrl"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Contributions  int             `json:"contributions"`
	CommitHistory  []WeeklyCommits `json:"commitHistory"`
	TotalAdditions int             `json:"totalAdditions"`
	TotalDeletions int             `json:"totalDeletions"`
	FirstCommit    string          `json:"firstCommit"`
	LastCommit     string          `json:"lastCommit"`
	WeeklyAverage  float64         `json:"weeklyAverage"`
	IsActive       bool            `json:"isActive"` // commit within the trailing 28 days
}

// WeeklyActivity is one week of repository-wide commit activity.
type WeeklyActivity struct {
	Week         string `json:"week"`
	Total        int    `json:"total"`
	Contributors int    `json:"contributors"`
}

// LanguageActivity names a language seen in the analysis window.
type LanguageActivity struct {
	Language     string   `json:"language"`
	Commits      int      `json:"commits"`
	Contributors []string `json:"contributors"`
}

// PeriodStats summarizes the analysis window.
type PeriodStats struct {
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	TotalCommits      int       `json:"totalCommits"`
	AvgCommitsPerWeek float64   `json:"avgCommitsPerWeek"`
}

// ContributorInsights is the full contributor analysis for one window.
// Contributor and commit fetches are capped, so on very large repositories
// the numbers are a bounded sample, not an exhaustive scan.
type ContributorInsights struct {
	Contributors       []DetailedContributor `json:"contributors"`
	TotalCommits       int                   `json:"totalCommits"`
	TotalContributors  int                   `json:"totalContributors"`
	ActiveContributors int                   `json:"activeContributors"`
	CommitsByWeek      []WeeklyActivity      `json:"commitsByWeek"`
	TopLanguages       []LanguageActivity    `json:"topLanguages"`
	PeriodStats        PeriodStats           `json:"periodStats"`
}

// LanguageStat is one language's share of the codebase.
type LanguageStat struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	Bytes      int    `json:"bytes"`
	Color      string `json:"color"`
}

// Dependency is one manifest entry.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"` // dependency | devDependency
}

// TechnologyStack is the best-effort language and dependency breakdown.
type TechnologyStack struct {
	Languages    []LanguageStat `json:"languages"`
	Dependencies []Dependency   `json:"dependencies"`
	Frameworks   []string       `json:"frameworks"`
}

// BusFactor scores contribution concentration, 0-100, higher is safer.
type BusFactor struct {
	Score           int    `json:"score"`
	Level           string `json:"level"` // low | medium | high
	TopContributors int    `json:"topContributors"`
	Description     string `json:"description"`
}

// MaintenanceStatus scores commit recency and frequency.
type MaintenanceStatus struct {
	Score              int       `json:"score"`
	Level              string    `json:"level"` // active | moderate | inactive
	LastCommit         time.Time `json:"lastCommit"`
	AvgCommitsPerMonth float64   `json:"avgCommitsPerMonth"`
	Description        string    `json:"description"`
}

// CommunityHealth scores a fixed checklist of positive factors.
type CommunityHealth struct {
	Score   int      `json:"score"`
	Level   string   `json:"level"` // healthy | moderate | concerning
	Factors []string `json:"factors"`
}

// RiskAssessment bundles the three advisory risk scores. Recomputed each
// call, never stored.
type RiskAssessment struct {
	BusFactor         BusFactor         `json:"busFactor"`
	MaintenanceStatus MaintenanceStatus `json:"maintenanceStatus"`
	CommunityHealth   CommunityHealth   `json:"communityHealth"`
}

// Trends compares the trailing 3-month window against the 3 before it.
// ContributorsGrowth is a fixed 0 sentinel: the data to compute it is not
// fetched.
type Trends struct {
	StarsGrowth        int `json:"starsGrowth"`
	ForksGrowth        int `json:"forksGrowth"`
	ContributorsGrowth int `json:"contributorsGrowth"`
	CommitActivity     int `json:"commitActivity"`
}

// AdvancedAnalytics is the full aggregate analytics response.
type AdvancedAnalytics struct {
	Repository      Repository           `json:"repository"`
	Contributors    []ContributorSummary `json:"contributors"`
	Releases        int                  `json:"releases"`
	Issues          IssueCounts          `json:"issues"`
	PullRequests    PullRequestCounts    `json:"pullRequests"`
	Commits         CommitCounts         `json:"commits"`
	Historical      []HistoricalPoint    `json:"historical"`
	TechnologyStack TechnologyStack      `json:"technologyStack"`
	RiskAssessment  RiskAssessment       `json:"riskAssessment"`
	Trends          Trends               `json:"trends"`
}

// Competitor is a candidate repository with its similarity to the target.
type Competitor struct {
	Repository
	Similarity int `json:"similarity"`
}

// CompetitivePosition places the target among its competitors by stars.
type CompetitivePosition struct {
	Position   string `json:"position"`
	Percentile int    `json:"percentile"`
	BetterThan int    `json:"betterThan"`
	Total      int    `json:"total"`
}

// CompetitiveSummary aggregates the competitor set.
type CompetitiveSummary struct {
	TotalFound           int                 `json:"totalFound"`
	AverageStars         float64             `json:"averageStars"`
	LanguageDistribution map[string]int      `json:"languageDistribution"`
	CompetitivePosition  CompetitivePosition `json:"competitivePosition"`
}

// CompetitiveAnalysis is the full competitive analysis response.
type CompetitiveAnalysis struct {
	TargetRepository Repository         `json:"targetRepository"`
	Competitors      []Competitor       `json:"competitors"`
	Analysis         CompetitiveSummary `json:"analysis"`
}

// SearchResult is one page of repository search results.
type SearchResult struct {
	Repositories []Repository `json:"repositories"`
	TotalCount   int          `json:"totalCount"`
	HasNextPage  bool         `json:"hasNextPage"`
	EndCursor    string       `json:"endCursor,omitempty"`
}

// Period selects the contributor-insights analysis window.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
	PeriodAll     Period = "all"
)

// ParsePeriod validates a period string, defaulting to year when empty.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear, PeriodAll:
		return Period(s), nil
	case "":
		return PeriodYear, nil
	default:
		return "", fmt.Errorf("invalid period %q (want week, month, quarter, year or all)", s)
	}
}

// Window maps the period onto a concrete [start, end) interval. "all" floors
// at GitHub's founding year rather than the Unix epoch.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	end := now
	switch p {
	case PeriodWeek:
		return end.AddDate(0, 0, -7), end
	case PeriodMonth:
		return end.AddDate(0, -1, 0), end
	case PeriodQuarter:
		return end.AddDate(0, -3, 0), end
	case PeriodAll:
		return time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC), end
	default:
		return end.AddDate(-1, 0, 0), end
	}
}

// TrendingPeriod selects the trending-search creation window.
type TrendingPeriod string

const (
	TrendingDay   TrendingPeriod = "day"
	TrendingWeek  TrendingPeriod = "week"
	TrendingMonth TrendingPeriod = "month"
)

// ParseTrendingPeriod validates a trending period, defaulting to week.
func ParseTrendingPeriod(s string) (TrendingPeriod, error) {
	switch TrendingPeriod(s) {
	case TrendingDay, TrendingWeek, TrendingMonth:
		return TrendingPeriod(s), nil
	case "":
		return TrendingWeek, nil
	default:
		return "", fmt.Errorf("invalid time period %q (want day, week or month)", s)
	}
}
