package rating

import (
	"math"
	"sort"
)

// Weng-Lin Bradley-Terry (full pairing) parameters.
const (
	InitialMu    = 25.0
	InitialSigma = InitialMu / 3
	Beta         = InitialSigma / 2
	Kappa        = 0.0001
)

// Skill is one participant's belief about their strength.
type Skill struct {
	Mu    float64
	Sigma float64
}

func DefaultSkill() Skill {
	return Skill{Mu: InitialMu, Sigma: InitialSigma}
}

type teamStats struct {
	mu     float64
	sigma2 float64
}

func aggregate(team []Skill) teamStats {
	var ts teamStats
	for _, s := range team {
		ts.mu += s.Mu
		ts.sigma2 += s.Sigma * s.Sigma
	}
	return ts
}

func pairScale(a, b teamStats) float64 {
	return math.Sqrt(a.sigma2 + b.sigma2 + 2*Beta*Beta)
}

// winProbability is P(team a beats team b).
func winProbability(a, b teamStats) float64 {
	c := pairScale(a, b)
	ea := math.Exp(a.mu / c)
	eb := math.Exp(b.mu / c)
	return ea / (ea + eb)
}

// Rate applies one Bradley-Terry full pairing update. ranks[i] is the
// finishing position of teams[i], lower is better, equal ranks are ties.
// The returned slice mirrors the shape of teams.
func Rate(teams [][]Skill, ranks []int) [][]Skill {
	stats := make([]teamStats, len(teams))
	for i, t := range teams {
		stats[i] = aggregate(t)
	}

	out := make([][]Skill, len(teams))
	for i, team := range teams {
		var omega, delta float64
		for q := range teams {
			if q == i {
				continue
			}
			c := pairScale(stats[i], stats[q])
			p := winProbability(stats[i], stats[q])

			var s float64
			switch {
			case ranks[q] > ranks[i]:
				s = 1
			case ranks[q] == ranks[i]:
				s = 0.5
			}

			omega += stats[i].sigma2 / c * (s - p)
			gamma := math.Sqrt(stats[i].sigma2) / c
			delta += gamma * stats[i].sigma2 / (c * c) * p * (1 - p)
		}

		out[i] = make([]Skill, len(team))
		for j, player := range team {
			share := player.Sigma * player.Sigma / stats[i].sigma2
			out[i][j] = Skill{
				Mu:    player.Mu + share*omega,
				Sigma: player.Sigma * math.Sqrt(math.Max(1-share*delta, Kappa)),
			}
		}
	}
	return out
}

// PredictRanks orders teams by their expected pairwise wins. Ties share the
// better rank.
func PredictRanks(teams [][]Skill) []int {
	stats := make([]teamStats, len(teams))
	for i, t := range teams {
		stats[i] = aggregate(t)
	}
	expected := make([]float64, len(teams))
	for i := range teams {
		for q := range teams {
			if q != i {
				expected[i] += winProbability(stats[i], stats[q])
			}
		}
	}
	return ranksFromValues(expected)
}

// ranksFromValues assigns 1-based competition ranks, higher value first.
func ranksFromValues(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	ranks := make([]int, len(values))
	for pos, idx := range order {
		if pos > 0 && values[idx] == values[order[pos-1]] {
			ranks[idx] = ranks[order[pos-1]]
			continue
		}
		ranks[idx] = pos + 1
	}
	return ranks
}
