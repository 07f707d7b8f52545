package gateway

import "time"

// Typed response schemas for each GraphQL query shape. Decoded at the
// boundary immediately after the call returns.

// CountNode is any connection queried only for its totalCount.
type CountNode struct {
	TotalCount int `json:"totalCount"`
}

// NameNode is any node queried only for its name.
type NameNode struct {
	Name string `json:"name"`
}

// PageInfo carries cursor pagination state.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// OwnerNode is the repository owner with its concrete type.
type OwnerNode struct {
	Login     string `json:"login"`
	TypeName  string `json:"__typename"`
	AvatarURL string `json:"avatarUrl"`
}

// LicenseNode is the repository license, absent for unlicensed repositories.
type LicenseNode struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// TopicConnection wraps repositoryTopics nodes.
type TopicConnection struct {
	Nodes []struct {
		Topic NameNode `json:"topic"`
	} `json:"nodes"`
}

// CommitHistoryTarget is the default branch commit target with its history
// totals. HistoryLastMonth counts commits since a 30-day cutoff fixed at
// query-build time.
type CommitHistoryTarget struct {
	History          CountNode `json:"history"`
	HistoryLastMonth CountNode `json:"historyLastMonth"`
}

// RepositoryNode is the full repository selection shared by the repository
// and search queries. Optional upstream fields are pointers so that absence
// decodes to nil, never panics.
type RepositoryNode struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	NameWithOwner   string           `json:"nameWithOwner"`
	Description     *string          `json:"description"`
	URL             string           `json:"url"`
	StargazerCount  int              `json:"stargazerCount"`
	ForkCount       int              `json:"forkCount"`
	Watchers        CountNode        `json:"watchers"`
	PrimaryLanguage *NameNode        `json:"primaryLanguage"`
	Topics          TopicConnection  `json:"repositoryTopics"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	PushedAt        *time.Time       `json:"pushedAt"`
	IsArchived      bool             `json:"isArchived"`
	IsPrivate       bool             `json:"isPrivate"`
	Owner           OwnerNode        `json:"owner"`
	LicenseInfo     *LicenseNode     `json:"licenseInfo"`
	Releases        CountNode        `json:"releases"`
	Issues          CountNode        `json:"issues"`
	ClosedIssues    CountNode        `json:"closedIssues"`
	PullRequests    CountNode        `json:"pullRequests"`
	ClosedPRs       CountNode        `json:"closedPullRequests"`
	MergedPRs       CountNode        `json:"mergedPullRequests"`
	DefaultBranch   *struct {
		Target *CommitHistoryTarget `json:"target"`
	} `json:"defaultBranchRef"`
}

// RepositoryEnvelope is the response shape of RepositoryQuery and
// MinimalRepositoryQuery. Repository is nil when the upstream reports no
// such repository.
type RepositoryEnvelope struct {
	Repository *RepositoryNode `json:"repository"`
}

// SearchEnvelope is the response shape of SearchRepositoriesQuery.
type SearchEnvelope struct {
	Search struct {
		RepositoryCount int              `json:"repositoryCount"`
		PageInfo        PageInfo         `json:"pageInfo"`
		Nodes           []RepositoryNode `json:"nodes"`
	} `json:"search"`
}

// MentionableUsersEnvelope is the response shape of ContributorCountQuery,
// the rough contributor-count proxy.
type MentionableUsersEnvelope struct {
	Repository *struct {
		MentionableUsers CountNode `json:"mentionableUsers"`
	} `json:"repository"`
}
