package rating

import (
	"math"
	"sort"

	"osu-mp-tracker/internal/match"
)

const (
	// CostGamesExponent discounts players who only appeared in a few games.
	CostGamesExponent = 1.0 / 3.0
	accuracyEpsilon   = 1e-4
)

// SessionCost scores each player's performance across a session relative
// to the median of every game they played.
func SessionCost(games []match.Game) map[int64]float64 {
	var sessionMax float64
	for _, g := range games {
		if g.ScoringType != match.ScoringScore {
			continue
		}
		for _, s := range g.Scores {
			sessionMax = math.Max(sessionMax, float64(s.TotalScore))
		}
	}

	ratios := make(map[int64]float64)
	played := make(map[int64]int)
	for _, g := range games {
		values := make([]float64, len(g.Scores))
		for i, s := range g.Scores {
			values[i] = costValue(g.ScoringType, s, sessionMax)
		}
		m := median(values)
		if m <= 0 {
			continue
		}
		for i, s := range g.Scores {
			ratios[s.UserID] += values[i] / m
			played[s.UserID]++
		}
	}
	if len(played) == 0 {
		return map[int64]float64{}
	}

	counts := make([]float64, 0, len(played))
	for _, n := range played {
		counts = append(counts, float64(n))
	}
	medianGames := median(counts)

	out := make(map[int64]float64, len(played))
	for id, n := range played {
		out[id] = ratios[id] / float64(n) * math.Pow(float64(n)/medianGames, CostGamesExponent)
	}
	return out
}

func costValue(scoringType string, s match.Score, sessionMax float64) float64 {
	switch scoringType {
	case match.ScoringScore:
		if sessionMax == 0 {
			return 0
		}
		return float64(s.TotalScore) / sessionMax
	case match.ScoringAccuracy:
		return -math.Log(1 - s.Accuracy + accuracyEpsilon)
	case match.ScoringCombo:
		return float64(s.MaxCombo)
	default:
		return float64(s.TotalScore)
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
