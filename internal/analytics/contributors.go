package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/go-github/v62/github"

	"github.com/repolens/repolens/internal/gateway"
)

// GetContributorInsights builds detailed contributor profiles for the given
// analysis window. The two sub-fetches carry independent budgets and degrade
// in stages: no contributors yields an empty but structurally complete
// result; no commits yields contributor totals without weekly detail. The
// fetches are capped, so large repositories get a bounded sample.
func (s *Service) GetContributorInsights(ctx context.Context, owner, name string, period Period) (*ContributorInsights, error) {
	now := s.now()
	start, end := period.Window(now)

	contributors := s.fetchContributors(ctx, owner, name)
	if len(contributors) == 0 {
		return emptyInsights(start, end), nil
	}

	commits := s.fetchCommits(ctx, owner, name, start, end)

	profiles := make(map[string]*DetailedContributor, len(contributors))
	order := make([]string, 0, len(contributors))
	for _, c := range contributors {
		login := c.GetLogin()
		if login == "" {
			continue
		}
		profiles[login] = &DetailedContributor{
			Login:         login,
			AvatarURL:     c.GetAvatarURL(),
			Contributions: c.GetContributions(),
			CommitHistory: []WeeklyCommits{},
		}
		order = append(order, login)
	}

	weekly := make(map[string]*weekBucket)
	activeCutoff := now.Add(-s.cfg.ActiveWindow)
	counted := 0

	for _, commit := range commits {
		login := commit.GetAuthor().GetLogin()
		profile, ok := profiles[login]
		if !ok {
			continue
		}

		author := commit.GetCommit().GetAuthor()
		when := author.GetDate().Time
		if when.IsZero() {
			continue
		}
		counted++

		if profile.Name == "" {
			profile.Name = author.GetName()
		}
		if profile.Email == "" {
			profile.Email = author.GetEmail()
		}

		day := when.UTC().Format("2006-01-02")
		if profile.FirstCommit == "" || day < profile.FirstCommit {
			profile.FirstCommit = day
		}
		if day > profile.LastCommit {
			profile.LastCommit = day
		}
		if when.After(activeCutoff) {
			profile.IsActive = true
		}

		week := mondayOf(when).Format("2006-01-02")
		addWeeklyCommit(profile, week)

		bucket, ok := weekly[week]
		if !ok {
			bucket = &weekBucket{authors: map[string]struct{}{}}
			weekly[week] = bucket
		}
		bucket.total++
		bucket.authors[login] = struct{}{}
	}

	result := &ContributorInsights{
		Contributors:  make([]DetailedContributor, 0, len(order)),
		TotalCommits:  counted,
		CommitsByWeek: make([]WeeklyActivity, 0, len(weekly)),
		TopLanguages:  s.topLanguages(ctx, owner, name),
	}

	for _, login := range order {
		profile := profiles[login]
		sort.Slice(profile.CommitHistory, func(i, j int) bool {
			return profile.CommitHistory[i].Week < profile.CommitHistory[j].Week
		})
		profile.WeeklyAverage = weeklyAverage(profile.CommitHistory)
		if profile.IsActive {
			result.ActiveContributors++
		}
		result.Contributors = append(result.Contributors, *profile)
	}
	sort.SliceStable(result.Contributors, func(i, j int) bool {
		return result.Contributors[i].Contributions > result.Contributors[j].Contributions
	})
	result.TotalContributors = len(result.Contributors)

	for week, bucket := range weekly {
		result.CommitsByWeek = append(result.CommitsByWeek, WeeklyActivity{
			Week:         week,
			Total:        bucket.total,
			Contributors: len(bucket.authors),
		})
	}
	sort.Slice(result.CommitsByWeek, func(i, j int) bool {
		return result.CommitsByWeek[i].Week < result.CommitsByWeek[j].Week
	})

	result.PeriodStats = periodStats(start, end, counted)

	return result, nil
}

type weekBucket struct {
	total   int
	authors map[string]struct{}
}

// fetchContributors lists contributors under the insights budget. Failure
// degrades to an empty list.
func (s *Service) fetchContributors(ctx context.Context, owner, name string) []*github.Contributor {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.InsightsFetchTimeout)
	defer cancel()

	contributors, _, err := s.gw.ListContributors(fetchCtx, owner, name, s.cfg.ContributorPageCap)
	if err != nil {
		s.log.Warn("Contributor fetch failed, serving empty insights",
			"repo", owner+"/"+name, "error", err)
		return nil
	}

	return contributors
}

// fetchCommits lists window commits under the insights budget. Failure
// degrades to an empty list; the caller still reports contributor totals.
func (s *Service) fetchCommits(ctx context.Context, owner, name string, start, end time.Time) []*github.RepositoryCommit {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.InsightsFetchTimeout)
	defer cancel()

	commits, err := s.gw.ListCommits(fetchCtx, owner, name, gateway.CommitListOptions{
		Since:   start,
		Until:   end,
		PerPage: s.cfg.CommitPageCap,
	})
	if err != nil {
		s.log.Warn("Commit fetch failed, serving insights without weekly detail",
			"repo", owner+"/"+name, "error", err)
		return nil
	}

	return commits
}

// topLanguages names the repository's top languages. Commit attribution per
// language is not fetched, so counts stay zero.
func (s *Service) topLanguages(ctx context.Context, owner, name string) []LanguageActivity {
	languages, err := s.gw.ListLanguages(ctx, owner, name)
	if err != nil || len(languages) == 0 {
		return []LanguageActivity{}
	}

	type langBytes struct {
		name  string
		bytes int
	}
	ranked := make([]langBytes, 0, len(languages))
	for lang, bytes := range languages {
		ranked = append(ranked, langBytes{lang, bytes})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].bytes > ranked[j].bytes })

	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	top := make([]LanguageActivity, 0, len(ranked))
	for _, lang := range ranked {
		top = append(top, LanguageActivity{Language: lang.name, Contributors: []string{}})
	}

	return top
}

func addWeeklyCommit(profile *DetailedContributor, week string) {
	for i := range profile.CommitHistory {
		if profile.CommitHistory[i].Week == week {
			profile.CommitHistory[i].Commits++
			return
		}
	}
	profile.CommitHistory = append(profile.CommitHistory, WeeklyCommits{Week: week, Commits: 1})
}

// weeklyAverage is the contributor's window commits per distinct active week,
// rounded to one decimal.
func weeklyAverage(history []WeeklyCommits) float64 {
	if len(history) == 0 {
		return 0
	}
	total := 0
	for _, week := range history {
		total += week.Commits
	}
	return round1(float64(total) / float64(len(history)))
}

func periodStats(start, end time.Time, totalCommits int) PeriodStats {
	weeks := int(math.Ceil(end.Sub(start).Hours() / (24 * 7)))
	if weeks < 1 {
		weeks = 1
	}
	return PeriodStats{
		StartDate:         start,
		EndDate:           end,
		TotalCommits:      totalCommits,
		AvgCommitsPerWeek: round1(float64(totalCommits) / float64(weeks)),
	}
}

// emptyInsights is the structurally valid zero result served when the
// contributor fetch fails or yields nothing.
func emptyInsights(start, end time.Time) *ContributorInsights {
	return &ContributorInsights{
		Contributors:  []DetailedContributor{},
		CommitsByWeek: []WeeklyActivity{},
		TopLanguages:  []LanguageActivity{},
		PeriodStats:   periodStats(start, end, 0),
	}
}
