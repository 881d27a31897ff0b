package difficulty

import (
	"context"

	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"
)

// Oracle turns a chart and mod combination into difficulty attributes. A nil
// result with a nil error means the chart is not supported.
type Oracle interface {
	GetDifficulty(ctx context.Context, beatmapID int64, mods match.Mods) (*domain.DifficultyAttributes, error)
}

// PerformanceCalculator turns difficulty attributes and a score into
// performance points. A nil result means no pp contribution.
type PerformanceCalculator interface {
	Calculate(ctx context.Context, attrs *domain.DifficultyAttributes, score match.Score) (*float64, error)
}

// Relevant strips mods that do not change difficulty or pp.
func Relevant(mods match.Mods) match.Mods {
	return mods & (match.ModEasy | match.ModHidden | match.ModHardRock | match.ModDoubleTime | match.ModHalfTime | match.ModFlashlight)
}

// Null rates nothing. It is used when no difficulty service is configured.
type Null struct{}

func (Null) GetDifficulty(context.Context, int64, match.Mods) (*domain.DifficultyAttributes, error) {
	return nil, nil
}

func (Null) Calculate(context.Context, *domain.DifficultyAttributes, match.Score) (*float64, error) {
	return nil, nil
}
