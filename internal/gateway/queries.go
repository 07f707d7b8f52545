package gateway

import (
	"fmt"
	"time"
)

// RepositoryQuery requests repository fields, issue and PR counts by state,
// and default-branch commit history totals. The last-month sub-count needs a
// concrete ISO timestamp, so the query is built per call.
func RepositoryQuery(now time.Time) string {
	since := now.AddDate(0, 0, -30).UTC().Format(time.RFC3339)

	return fmt.Sprintf(`
query GetRepository($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    id
    name
    nameWithOwner
    description
    url
    stargazerCount
    forkCount
    watchers {
      totalCount
    }
    primaryLanguage {
      name
    }
    repositoryTopics(first: 10) {
      nodes {
        topic {
          name
        }
      }
    }
    createdAt
    updatedAt
    pushedAt
    isArchived
    isPrivate
    owner {
      __typename
      login
      ... on User {
        avatarUrl
      }
      ... on Organization {
        avatarUrl
      }
    }
    licenseInfo {
      name
      key
    }
    releases {
      totalCount
    }
    issues(states: [OPEN]) {
      totalCount
    }
    closedIssues: issues(states: [CLOSED]) {
      totalCount
    }
    pullRequests(states: [OPEN]) {
      totalCount
    }
    closedPullRequests: pullRequests(states: [CLOSED]) {
      totalCount
    }
    mergedPullRequests: pullRequests(states: [MERGED]) {
      totalCount
    }
    defaultBranchRef {
      target {
        ... on Commit {
          history {
            totalCount
          }
          historyLastMonth: history(since: %q) {
            totalCount
          }
        }
      }
    }
  }
}`, since)
}

// MinimalRepositoryQuery is the reduced query used by the snapshot fallback
// chain when the full query fails.
const MinimalRepositoryQuery = `
query GetMinimalRepository($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    id
    name
    nameWithOwner
    description
    url
    stargazerCount
    forkCount
    watchers {
      totalCount
    }
    primaryLanguage {
      name
    }
    createdAt
    updatedAt
    pushedAt
    isArchived
    isPrivate
    owner {
      __typename
      login
      ... on User {
        avatarUrl
      }
      ... on Organization {
        avatarUrl
      }
    }
  }
}`

// SearchRepositoriesQuery searches repositories by keyword, topic or language.
const SearchRepositoriesQuery = `
query SearchRepositories($searchQuery: String!, $first: Int!, $after: String) {
  search(query: $searchQuery, type: REPOSITORY, first: $first, after: $after) {
    repositoryCount
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      ... on Repository {
        id
        name
        nameWithOwner
        description
        url
        stargazerCount
        forkCount
        watchers {
          totalCount
        }
        primaryLanguage {
          name
        }
        repositoryTopics(first: 5) {
          nodes {
            topic {
              name
            }
          }
        }
        createdAt
        updatedAt
        pushedAt
        isArchived
        isPrivate
        owner {
          __typename
          login
          ... on User {
            avatarUrl
          }
          ... on Organization {
            avatarUrl
          }
        }
        licenseInfo {
          name
          key
        }
      }
    }
  }
}`

// ContributorCountQuery is the rough contributor-count proxy used as the
// second tier of the contributor-count fallback chain.
const ContributorCountQuery = `
query GetContributorCount($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    mentionableUsers(first: 1) {
      totalCount
    }
  }
}`
