package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/go-github/v62/github"
)

// GetHistoricalData builds the monthly growth series from a bounded star
// event sample and the weekly commit activity stats. The series always spans
// the trailing HistoryMonths calendar months, oldest first, with empty months
// pre-seeded at zero.
func (s *Service) GetHistoricalData(ctx context.Context, owner, name string) ([]HistoricalPoint, error) {
	stars, err := s.gw.ListStargazers(ctx, owner, name, s.cfg.StargazerPageSize)
	if err != nil {
		return nil, err
	}

	activity, err := s.gw.ListCommitActivity(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	return buildHistory(s.now(), stars, activity, s.cfg.HistoryMonths), nil
}

// buildHistory folds star events and weekly commit totals into pre-seeded
// month buckets. Star events fold cumulatively in chronological order;
// commit weeks add into the month their week starts in. Events outside the
// window are dropped.
func buildHistory(now time.Time, stars []*github.Stargazer, weeks []*github.WeeklyCommitActivity, months int) []HistoricalPoint {
	points := make([]HistoricalPoint, 0, months)
	index := make(map[string]int, months)
	for i := months - 1; i >= 0; i-- {
		month := now.AddDate(0, -i, 0)
		key := monthKey(month)
		index[key] = len(points)
		points = append(points, HistoricalPoint{Month: key})
	}

	sorted := make([]*github.Stargazer, 0, len(stars))
	for _, star := range stars {
		if star != nil && star.StarredAt != nil {
			sorted = append(sorted, star)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StarredAt.Time.Before(sorted[j].StarredAt.Time)
	})

	cumulative := 0
	for _, star := range sorted {
		if i, ok := index[monthKey(star.StarredAt.Time)]; ok {
			cumulative++
			points[i].Stars = cumulative
		}
	}

	for _, week := range weeks {
		if week == nil || week.Week == nil {
			continue
		}
		if i, ok := index[monthKey(week.Week.Time)]; ok {
			points[i].Commits += week.GetTotal()
		}
	}

	return points
}

// monthKey formats a timestamp as its YYYY-MM bucket key.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// mondayOf truncates a timestamp to the Monday starting its week, UTC.
func mondayOf(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
