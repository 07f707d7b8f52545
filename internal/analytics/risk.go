package analytics

import (
	"context"
	"time"

	"github.com/repolens/repolens/internal/gateway"
)

// Bus factor tier thresholds on the top contributor's share of total
// contributions. Boundaries are exclusive: a share of exactly 0.70 lands in
// the middle tier, exactly 0.50 in the bottom one.
const (
	busFactorHighRiskShare   = 0.70
	busFactorMediumRiskShare = 0.50
)

// Maintenance tier thresholds.
const (
	maintenanceInactiveDays = 180
	maintenanceStaleDays    = 60
	maintenanceLowActivity  = 2.0
	maintenanceSampleDays   = 90
)

// GetRiskAssessment computes the advisory risk scores from the contributor
// listing and a recent commit sample. Any fetch failure degrades to the
// neutral "unable to assess" default; this method never fails the caller.
func (s *Service) GetRiskAssessment(ctx context.Context, owner, name string) RiskAssessment {
	now := s.now()

	contributors, _, err := s.gw.ListContributors(ctx, owner, name, s.cfg.ContributorPageCap)
	if err != nil {
		s.log.Warn("Risk assessment degraded, contributor fetch failed",
			"repo", owner+"/"+name, "error", err)
		return neutralRiskAssessment(now)
	}

	commits, err := s.gw.ListCommits(ctx, owner, name, gateway.CommitListOptions{PerPage: 100})
	if err != nil {
		s.log.Warn("Risk assessment degraded, commit fetch failed",
			"repo", owner+"/"+name, "error", err)
		return neutralRiskAssessment(now)
	}

	contributions := make([]int, 0, len(contributors))
	for _, c := range contributors {
		contributions = append(contributions, c.GetContributions())
	}

	commitDates := make([]time.Time, 0, len(commits))
	for _, commit := range commits {
		if when := commit.GetCommit().GetAuthor().GetDate().Time; !when.IsZero() {
			commitDates = append(commitDates, when)
		}
	}

	return assessRisk(now, contributions, commitDates)
}

// assessRisk derives the three scores from contribution counts (descending,
// as the listing returns them) and commit timestamps (newest first).
func assessRisk(now time.Time, contributions []int, commitDates []time.Time) RiskAssessment {
	bus := busFactor(contributions)
	maintenance := maintenanceStatus(now, commitDates)

	daysSinceLastCommit := maintenanceInactiveDays + 1
	if len(commitDates) > 0 {
		daysSinceLastCommit = int(now.Sub(commitDates[0]).Hours() / 24)
	}

	return RiskAssessment{
		BusFactor:         bus,
		MaintenanceStatus: maintenance,
		CommunityHealth: communityHealth(
			len(contributions), maintenance.AvgCommitsPerMonth, daysSinceLastCommit),
	}
}

// busFactor scores contribution concentration by the top contributor's share.
func busFactor(contributions []int) BusFactor {
	total := 0
	for _, c := range contributions {
		total += c
	}

	topShare := 0.0
	if total > 0 {
		topShare = float64(contributions[0]) / float64(total)
	}

	switch {
	case topShare > busFactorHighRiskShare:
		return BusFactor{
			Score:           25,
			Level:           "high",
			TopContributors: minInt(1, len(contributions)),
			Description:     "Project depends heavily on a single contributor",
		}
	case topShare > busFactorMediumRiskShare:
		return BusFactor{
			Score:           50,
			Level:           "medium",
			TopContributors: minInt(2, len(contributions)),
			Description:     "Project has moderate contributor concentration",
		}
	default:
		return BusFactor{
			Score:           85,
			Level:           "low",
			TopContributors: minInt(5, len(contributions)),
			Description:     "Contributions are well distributed",
		}
	}
}

// maintenanceStatus scores commit recency and frequency. The frequency
// average covers the trailing 90-day sample, per 30-day month.
func maintenanceStatus(now time.Time, commitDates []time.Time) MaintenanceStatus {
	lastCommit := time.Time{}
	if len(commitDates) > 0 {
		lastCommit = commitDates[0]
	}
	daysSince := int(now.Sub(lastCommit).Hours() / 24)

	sampleCutoff := now.AddDate(0, 0, -maintenanceSampleDays)
	recent := 0
	for _, when := range commitDates {
		if when.After(sampleCutoff) {
			recent++
		}
	}
	avgPerMonth := round1(float64(recent) / 3)

	switch {
	case daysSince > maintenanceInactiveDays:
		return MaintenanceStatus{
			Score:              25,
			Level:              "inactive",
			LastCommit:         lastCommit,
			AvgCommitsPerMonth: avgPerMonth,
			Description:        "Repository has not been updated in over 6 months",
		}
	case daysSince > maintenanceStaleDays || avgPerMonth < maintenanceLowActivity:
		return MaintenanceStatus{
			Score:              60,
			Level:              "moderate",
			LastCommit:         lastCommit,
			AvgCommitsPerMonth: avgPerMonth,
			Description:        "Repository sees occasional maintenance",
		}
	default:
		return MaintenanceStatus{
			Score:              90,
			Level:              "active",
			LastCommit:         lastCommit,
			AvgCommitsPerMonth: avgPerMonth,
			Description:        "Repository is actively maintained",
		}
	}
}

// communityHealth scores a checklist of positive signals. Each satisfied
// factor is worth 30 points, capped at 90.
func communityHealth(contributorCount int, avgCommitsPerMonth float64, daysSinceLastCommit int) CommunityHealth {
	factors := []string{}
	if contributorCount > 10 {
		factors = append(factors, "Active contributor community")
	}
	if avgCommitsPerMonth > 5 {
		factors = append(factors, "Regular development activity")
	}
	if daysSinceLastCommit < 30 {
		factors = append(factors, "Recent updates")
	}

	score := len(factors) * 30
	if score > 90 {
		score = 90
	}

	level := "concerning"
	switch {
	case len(factors) >= 2:
		level = "healthy"
	case len(factors) == 1:
		level = "moderate"
	}

	return CommunityHealth{Score: score, Level: level, Factors: factors}
}

// neutralRiskAssessment is the mid-scale default served when the underlying
// data cannot be fetched.
func neutralRiskAssessment(now time.Time) RiskAssessment {
	return RiskAssessment{
		BusFactor: BusFactor{
			Score:       50,
			Level:       "medium",
			Description: "Unable to assess contributor distribution",
		},
		MaintenanceStatus: MaintenanceStatus{
			Score:       50,
			Level:       "moderate",
			LastCommit:  now,
			Description: "Unable to assess maintenance activity",
		},
		CommunityHealth: CommunityHealth{
			Score:   50,
			Level:   "moderate",
			Factors: []string{},
		},
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
