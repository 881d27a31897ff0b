package rating

import "osu-mp-tracker/internal/domain"

// Skillset thresholds on difficulty attributes.
const (
	aimDominance     = 1.15
	technicalSliders = 0.96
	lowApproachRate  = 8.5
	highApproachRate = 10.3
	precisionCircle  = 5.2
	highBPMThreshold = 220.0
)

// Skillsets lists the facets a chart exercises. SkillOverall is always
// first; nil attributes yield only SkillOverall.
func Skillsets(attrs *domain.DifficultyAttributes) []Skillset {
	out := []Skillset{SkillOverall}
	if attrs == nil {
		return out
	}
	switch {
	case attrs.AimDifficulty >= aimDominance*attrs.SpeedDifficulty:
		out = append(out, SkillAim)
	case attrs.SpeedDifficulty > attrs.AimDifficulty:
		out = append(out, SkillTapping)
	}
	if attrs.SliderCount > 0 && attrs.SliderFactor < technicalSliders {
		out = append(out, SkillTechnical)
	}
	if attrs.ApproachRate < lowApproachRate {
		out = append(out, SkillLowApproachRate)
	}
	if attrs.ApproachRate >= highApproachRate {
		out = append(out, SkillHighApproachRate)
	}
	if attrs.CircleSize >= precisionCircle {
		out = append(out, SkillPrecision)
	}
	if attrs.BPM >= highBPMThreshold {
		out = append(out, SkillHighBPM)
	}
	return out
}
