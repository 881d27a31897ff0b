package rating

import (
	"math"
	"sort"

	"osu-mp-tracker/internal/domain"
)

const (
	// OrdinalScale maps the model scale onto display values.
	OrdinalScale = 150.0
	// StarRatingWeight folds chart difficulty into the ordinal.
	StarRatingWeight = 25.0 / 12.0
	// MaxStarRating caps star ratings accepted into a rating's history.
	MaxStarRating = 10.0

	StarHistoryLimit = 100
	PPHistoryLimit   = 100

	GlobalRankedThreshold = 100
	RankedThreshold       = 10
)

// PP aggregation constants. Both were tuned empirically.
const (
	PPDecay      = 0.95
	PPBonusScale = 417.33
	PPBonusBase  = 0.995
	PPBonusLimit = 1000
)

type Status string

const (
	StatusCalibration Status = "calibration"
	StatusRanked      Status = "ranked"
)

// Ordinal is the display value of a skill rating.
func Ordinal(mu, sigma, starRating float64) float64 {
	return (mu + StarRatingWeight*starRating - 3*sigma) * OrdinalScale
}

// UpperQuartile returns the 75th percentile with linear interpolation.
func UpperQuartile(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := 0.75 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// StarRating is the displayed difficulty of a rating.
func StarRating(r *domain.Rating) float64 {
	return UpperQuartile(r.StarRatings)
}

// StatusOf derives calibration state from games played.
func StatusOf(r *domain.Rating) Status {
	threshold := RankedThreshold
	if a, err := DecodeAttribute(r.AttributeID); err == nil && a.Global() {
		threshold = GlobalRankedThreshold
	}
	if r.GamesPlayed >= threshold {
		return StatusRanked
	}
	return StatusCalibration
}

// PPTotal weights pp values best first by PPDecay^rank and adds a bonus that
// saturates with the number of games played.
func PPTotal(values []float64, gamesPlayed int) float64 {
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var total float64
	for i, v := range sorted {
		total += v * math.Pow(PPDecay, float64(i))
	}
	n := float64(min(PPBonusLimit, gamesPlayed))
	return total + PPBonusScale*(1-math.Pow(PPBonusBase, n))
}

func pushStarRating(r *domain.Rating, sr float64) {
	if sr <= 0 || sr >= MaxStarRating {
		return
	}
	r.StarRatings = append(r.StarRatings, sr)
	if over := len(r.StarRatings) - StarHistoryLimit; over > 0 {
		r.StarRatings = append([]float64(nil), r.StarRatings[over:]...)
	}
}

func pushPP(r *domain.Rating, pp float64) {
	r.PPValues = append(r.PPValues, pp)
	sort.Sort(sort.Reverse(sort.Float64Slice(r.PPValues)))
	if len(r.PPValues) > PPHistoryLimit {
		r.PPValues = r.PPValues[:PPHistoryLimit]
	}
}
