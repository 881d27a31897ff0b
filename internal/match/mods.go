package match

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mods is the legacy osu! modifier bitset.
type Mods uint32

const (
	ModNoFail      Mods = 1 << 0
	ModEasy        Mods = 1 << 1
	ModTouchDevice Mods = 1 << 2
	ModHidden      Mods = 1 << 3
	ModHardRock    Mods = 1 << 4
	ModSuddenDeath Mods = 1 << 5
	ModDoubleTime  Mods = 1 << 6
	ModRelax       Mods = 1 << 7
	ModHalfTime    Mods = 1 << 8
	ModNightcore   Mods = 1 << 9
	ModFlashlight  Mods = 1 << 10
	ModAutoplay    Mods = 1 << 11
	ModSpunOut     Mods = 1 << 12
	ModAutopilot   Mods = 1 << 13
	ModPerfect     Mods = 1 << 14
	ModFadeIn      Mods = 1 << 20
	ModCinema      Mods = 1 << 22
	ModScoreV2     Mods = 1 << 29
	ModMirror      Mods = 1 << 30
	// ModUnknown marks acronyms outside the table, such as mania key mods.
	ModUnknown Mods = 1 << 31
)

// ModSpeedUp covers both rate-increasing modifiers.
const ModSpeedUp = ModDoubleTime | ModNightcore

var modAcronyms = []struct {
	acronym string
	mod     Mods
}{
	{"NF", ModNoFail},
	{"EZ", ModEasy},
	{"TD", ModTouchDevice},
	{"HD", ModHidden},
	{"HR", ModHardRock},
	{"SD", ModSuddenDeath},
	{"DT", ModDoubleTime},
	{"RX", ModRelax},
	{"HT", ModHalfTime},
	{"NC", ModNightcore | ModDoubleTime},
	{"FL", ModFlashlight},
	{"AT", ModAutoplay},
	{"SO", ModSpunOut},
	{"AP", ModAutopilot},
	{"PF", ModPerfect | ModSuddenDeath},
	{"FI", ModFadeIn},
	{"CN", ModCinema},
	{"V2", ModScoreV2},
	{"MR", ModMirror},
}

// ParseMods converts a list of acronyms such as ["HD", "DT"] into a bitset.
// Unrecognised acronyms set ModUnknown.
func ParseMods(acronyms []string) Mods {
	var m Mods
	for _, a := range acronyms {
		found := false
		for _, entry := range modAcronyms {
			if strings.EqualFold(a, entry.acronym) {
				m |= entry.mod
				found = true
				break
			}
		}
		if !found {
			m |= ModUnknown
		}
	}
	return m
}

func (m Mods) Has(flag Mods) bool { return m&flag == flag }

func (m Mods) Any(flags Mods) bool { return m&flags != 0 }

func (m Mods) String() string {
	if m == 0 {
		return "NM"
	}
	var b strings.Builder
	for _, entry := range modAcronyms {
		if entry.acronym == "DT" && m.Has(ModNightcore) {
			continue
		}
		if entry.acronym == "SD" && m.Has(ModPerfect) {
			continue
		}
		if m.Has(entry.mod) {
			b.WriteString(entry.acronym)
		}
	}
	if m.Has(ModUnknown) {
		b.WriteString("??")
	}
	return b.String()
}

// UnmarshalJSON accepts either the acronym list used by the v2 API or a raw
// legacy integer.
func (m *Mods) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = 0
		return nil
	}
	var raw uint32
	if err := json.Unmarshal(data, &raw); err == nil {
		*m = Mods(raw)
		return nil
	}
	var acronyms []string
	if err := json.Unmarshal(data, &acronyms); err != nil {
		return fmt.Errorf("failed to decode mods: %w", err)
	}
	*m = ParseMods(acronyms)
	return nil
}

func (m Mods) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint32(m))
}
