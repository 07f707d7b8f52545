package analytics

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Similarity scoring weights. The four components sum to 100 for a candidate
// identical to the target.
const (
	similarityLanguageWeight    = 40.0
	similarityTopicWeight       = 30.0
	similarityDescriptionWeight = 20.0
	similaritySizeWeight        = 10.0
)

// Word length floor for description overlap; shorter words are noise.
const descriptionWordMinLen = 3

var wordSplitter = regexp.MustCompile(`\W+`)

// GetCompetitiveAnalysis finds repositories similar to the target and places
// the target among them by stars. Candidates come from up to three searches
// (primary topic, language plus description keywords, first three topics);
// individual search failures shrink the candidate pool but never fail the
// operation.
func (s *Service) GetCompetitiveAnalysis(ctx context.Context, owner, name string, limit int) (*CompetitiveAnalysis, error) {
	stats, err := s.GetRepositoryStats(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	target := stats.Repository

	candidates := map[string]Competitor{}
	for _, query := range competitorQueries(target) {
		result, err := s.SearchRepositories(ctx, query, limit*2, "")
		if err != nil {
			s.log.Warn("Competitor search failed", "query", query, "error", err)
			continue
		}
		for _, repo := range result.Repositories {
			if repo.FullName == target.FullName {
				continue
			}
			candidates[repo.ID] = Competitor{
				Repository: repo,
				Similarity: similarityScore(target, repo),
			}
		}
	}

	competitors := make([]Competitor, 0, len(candidates))
	for _, c := range candidates {
		competitors = append(competitors, c)
	}
	sort.Slice(competitors, func(i, j int) bool {
		if competitors[i].Similarity != competitors[j].Similarity {
			return competitors[i].Similarity > competitors[j].Similarity
		}
		return competitors[i].Stars > competitors[j].Stars
	})

	totalFound := len(competitors)
	if len(competitors) > limit {
		competitors = competitors[:limit]
	}

	return &CompetitiveAnalysis{
		TargetRepository: target,
		Competitors:      competitors,
		Analysis: CompetitiveSummary{
			TotalFound:           totalFound,
			AverageStars:         averageStars(competitors),
			LanguageDistribution: languageDistribution(competitors),
			CompetitivePosition:  competitivePosition(target, competitors),
		},
	}, nil
}

// competitorQueries derives up to three search queries from the target's
// topics, language and description keywords.
func competitorQueries(target Repository) []string {
	queries := []string{}

	if len(target.Topics) > 0 {
		q := "topic:" + target.Topics[0]
		if target.Language != "" {
			q += " language:" + target.Language
		}
		queries = append(queries, q+" sort:stars-desc")
	}

	if target.Language != "" {
		keywords := descriptionKeywords(target.Description, 2)
		if len(keywords) > 0 {
			queries = append(queries, fmt.Sprintf("%s language:%s sort:stars-desc",
				strings.Join(keywords, " "), target.Language))
		} else {
			queries = append(queries, fmt.Sprintf("language:%s sort:stars-desc", target.Language))
		}
	}

	if len(target.Topics) > 1 {
		parts := []string{}
		for _, topic := range target.Topics[:minInt(3, len(target.Topics))] {
			parts = append(parts, "topic:"+topic)
		}
		queries = append(queries, strings.Join(parts, " ")+" sort:stars-desc")
	}

	return queries
}

// meaningfulWords lowercases a description and drops words at or under the
// length floor.
func meaningfulWords(description string) []string {
	words := []string{}
	for _, word := range wordSplitter.Split(strings.ToLower(description), -1) {
		if len(word) > descriptionWordMinLen {
			words = append(words, word)
		}
	}
	return words
}

// descriptionKeywords picks the first n meaningful words of a description.
func descriptionKeywords(description string, n int) []string {
	words := meaningfulWords(description)
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// similarityScore rates how alike two repositories are, 0 to 100. Language
// match is all-or-nothing; topic overlap, description word overlap and star
// ratio contribute proportionally.
func similarityScore(target, candidate Repository) int {
	score := 0.0

	if target.Language == candidate.Language {
		score += similarityLanguageWeight
	}

	if len(target.Topics) > 0 {
		candidateTopics := map[string]struct{}{}
		for _, topic := range candidate.Topics {
			candidateTopics[topic] = struct{}{}
		}
		common := 0
		for _, topic := range target.Topics {
			if _, ok := candidateTopics[topic]; ok {
				common++
			}
		}
		score += float64(common) / float64(len(target.Topics)) * similarityTopicWeight
	}

	if target.Description != "" && candidate.Description != "" {
		targetWords := meaningfulWords(target.Description)
		candidateWords := map[string]struct{}{}
		for _, word := range meaningfulWords(candidate.Description) {
			candidateWords[word] = struct{}{}
		}

		common := 0
		for _, word := range targetWords {
			if _, ok := candidateWords[word]; ok {
				common++
			}
		}
		if len(targetWords) > 0 {
			score += float64(common) / float64(len(targetWords)) * similarityDescriptionWeight
		}
	}

	larger := math.Max(float64(target.Stars), math.Max(float64(candidate.Stars), 1))
	smaller := math.Min(float64(target.Stars), float64(candidate.Stars))
	score += smaller / larger * similaritySizeWeight

	return int(math.Round(score))
}

// competitivePosition ranks the target by stars against the competitor set.
// An empty set yields the Unknown position rather than a division by zero.
func competitivePosition(target Repository, competitors []Competitor) CompetitivePosition {
	if len(competitors) == 0 {
		return CompetitivePosition{Position: "Unknown", Total: 0}
	}

	betterThan := 0
	for _, c := range competitors {
		if target.Stars > c.Stars {
			betterThan++
		}
	}
	percentile := float64(betterThan) / float64(len(competitors)) * 100

	position := "Niche"
	switch {
	case percentile >= 80:
		position = "Leader"
	case percentile >= 60:
		position = "Strong"
	case percentile >= 40:
		position = "Competitive"
	case percentile >= 20:
		position = "Emerging"
	}

	return CompetitivePosition{
		Position:   position,
		Percentile: int(math.Round(percentile)),
		BetterThan: betterThan,
		Total:      len(competitors),
	}
}

func averageStars(competitors []Competitor) float64 {
	if len(competitors) == 0 {
		return 0
	}
	sum := 0
	for _, c := range competitors {
		sum += c.Stars
	}
	return math.Round(float64(sum) / float64(len(competitors)))
}

func languageDistribution(competitors []Competitor) map[string]int {
	distribution := map[string]int{}
	for _, c := range competitors {
		if c.Language != "" {
			distribution[c.Language]++
		}
	}
	return distribution
}
