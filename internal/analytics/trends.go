package analytics

import "math"

// CalculateTrends compares the most recent three months of the growth series
// against the three before them. Fewer than two points yields all-zero
// trends; an all-zero previous window yields 0 percent, not infinity.
// Contributor growth stays 0: month-by-month contributor counts are not
// collected.
func CalculateTrends(historical []HistoricalPoint) Trends {
	if len(historical) < 2 {
		return Trends{}
	}

	recent := tail(historical, 3)
	previous := tail(historical[:len(historical)-len(recent)], 3)

	return Trends{
		StarsGrowth:    growthPercent(avg(recent, starsOf), avg(previous, starsOf)),
		ForksGrowth:    growthPercent(avg(recent, forksOf), avg(previous, forksOf)),
		CommitActivity: growthPercent(avg(recent, commitsOf), avg(previous, commitsOf)),
	}
}

func tail(points []HistoricalPoint, n int) []HistoricalPoint {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func avg(points []HistoricalPoint, value func(HistoricalPoint) int) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0
	for _, p := range points {
		sum += value(p)
	}
	return float64(sum) / float64(len(points))
}

// growthPercent is the rounded percentage change from previous to recent,
// with a zero previous average collapsing to 0.
func growthPercent(recent, previous float64) int {
	if previous <= 0 {
		return 0
	}
	return int(math.Round((recent - previous) / previous * 100))
}

func starsOf(p HistoricalPoint) int   { return p.Stars }
func forksOf(p HistoricalPoint) int   { return p.Forks }
func commitsOf(p HistoricalPoint) int { return p.Commits }
