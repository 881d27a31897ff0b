package rating

import (
	"fmt"

	"osu-mp-tracker/internal/match"
)

// Modification is the normalized mod group a rating is kept for.
type Modification int

const (
	ModOverall Modification = iota
	ModNoMod
	ModHidden
	ModHardRock
	ModDoubleTime
	ModEasy
	ModFlashlight

	modificationCount
)

// Skillset is a difficulty facet derived from chart attributes.
type Skillset int

const (
	SkillOverall Skillset = iota
	SkillAim
	SkillTapping
	SkillTechnical
	SkillLowApproachRate
	SkillHighApproachRate
	SkillPrecision
	SkillHighBPM

	skillsetCount
)

// ScoringMethod is the quantity players are compared on.
type ScoringMethod int

const (
	ScoringScore ScoringMethod = iota
	ScoringAccuracy
	ScoringCombo
	ScoringPP

	scoringCount
)

// Attribute identifies one rating bucket.
type Attribute struct {
	Modification Modification
	Skillset     Skillset
	Scoring      ScoringMethod
}

// AttributeCount is the size of the packed id space.
const AttributeCount = int(modificationCount) * int(skillsetCount) * int(scoringCount)

// ID packs the attribute as mod*S*C + skill*C + scoring.
func (a Attribute) ID() int {
	return int(a.Modification)*int(skillsetCount)*int(scoringCount) + int(a.Skillset)*int(scoringCount) + int(a.Scoring)
}

// DecodeAttribute is the inverse of Attribute.ID.
func DecodeAttribute(id int) (Attribute, error) {
	if id < 0 || id >= AttributeCount {
		return Attribute{}, fmt.Errorf("attribute id %d out of range", id)
	}
	return Attribute{
		Modification: Modification(id / (int(skillsetCount) * int(scoringCount))),
		Skillset:     Skillset(id / int(scoringCount) % int(skillsetCount)),
		Scoring:      ScoringMethod(id % int(scoringCount)),
	}, nil
}

// Valid reports whether the skillset is meaningful under the modification.
func (a Attribute) Valid() bool {
	switch a.Skillset {
	case SkillHighApproachRate:
		return a.Modification == ModDoubleTime
	case SkillLowApproachRate:
		return a.Modification != ModDoubleTime && a.Modification != ModHardRock
	case SkillOverall, SkillAim, SkillTapping, SkillTechnical, SkillPrecision, SkillHighBPM:
		return true
	}
	return false
}

// Global reports whether the attribute is one of the four headline ratings.
func (a Attribute) Global() bool {
	return a.Modification == ModOverall && a.Skillset == SkillOverall
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s/%s/%s", a.Modification, a.Skillset, a.Scoring)
}

// AllAttributes lists every valid attribute in id order.
func AllAttributes() []Attribute {
	var out []Attribute
	for id := 0; id < AttributeCount; id++ {
		a, _ := DecodeAttribute(id)
		if a.Valid() {
			out = append(out, a)
		}
	}
	return out
}

func (m Modification) String() string {
	switch m {
	case ModOverall:
		return "overall"
	case ModNoMod:
		return "nomod"
	case ModHidden:
		return "hidden"
	case ModHardRock:
		return "hardrock"
	case ModDoubleTime:
		return "doubletime"
	case ModEasy:
		return "easy"
	case ModFlashlight:
		return "flashlight"
	case modificationCount:
	}
	return fmt.Sprintf("modification(%d)", int(m))
}

func (s Skillset) String() string {
	switch s {
	case SkillOverall:
		return "overall"
	case SkillAim:
		return "aim"
	case SkillTapping:
		return "tapping"
	case SkillTechnical:
		return "technical"
	case SkillLowApproachRate:
		return "low_ar"
	case SkillHighApproachRate:
		return "high_ar"
	case SkillPrecision:
		return "precision"
	case SkillHighBPM:
		return "high_bpm"
	case skillsetCount:
	}
	return fmt.Sprintf("skillset(%d)", int(s))
}

func (c ScoringMethod) String() string {
	switch c {
	case ScoringScore:
		return "score"
	case ScoringAccuracy:
		return "accuracy"
	case ScoringCombo:
		return "combo"
	case ScoringPP:
		return "pp"
	case scoringCount:
	}
	return fmt.Sprintf("scoring(%d)", int(c))
}

// ScoringMethods lists every method in id order.
func ScoringMethods() []ScoringMethod {
	return []ScoringMethod{ScoringScore, ScoringAccuracy, ScoringCombo, ScoringPP}
}

// Normalize collapses a score's mod bitset to the modification it is rated
// under. Cosmetic and score-neutral toggles are ignored, Nightcore counts as
// DoubleTime and Hidden paired with a stronger mod is rated under the
// stronger one. The second return is false when no specific modification
// applies (e.g. HalfTime); such scores still count towards ModOverall.
func Normalize(mods match.Mods) (Modification, bool) {
	m := mods &^ (match.ModNoFail | match.ModSuddenDeath | match.ModPerfect | match.ModSpunOut | match.ModScoreV2 | match.ModMirror | match.ModNightcore)

	switch {
	case m.Has(match.ModFlashlight):
		return ModFlashlight, true
	case m.Has(match.ModHalfTime):
		return 0, false
	case m.Has(match.ModDoubleTime):
		return ModDoubleTime, true
	case m.Has(match.ModHardRock):
		return ModHardRock, true
	case m.Has(match.ModEasy):
		return ModEasy, true
	case m.Has(match.ModHidden) || m.Has(match.ModFadeIn):
		return ModHidden, true
	case m == 0:
		return ModNoMod, true
	}
	return 0, false
}

// Modifications returns the buckets a score with the given mods contributes to.
func Modifications(mods match.Mods) []Modification {
	if m, ok := Normalize(mods); ok {
		return []Modification{ModOverall, m}
	}
	return []Modification{ModOverall}
}
