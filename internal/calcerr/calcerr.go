package calcerr

import (
	"fmt"
	"math/bits"
	"strings"
)

// Kind is one rejection reason. Kinds are bit flags so a Set can be stored
// as a single integer.
type Kind uint32

const (
	NameMismatch Kind = 1 << iota
	WrongSessionType
	BannedAcronym
	TooManyHosts
	ExcessWarmups
	NoStandardScores
	InGameSelfHost
	OversizedHeadToHead
	AsymmetricTeams
	TooManyPlayers
	TooFewPlayers
	InsufficientGames
	TooManyGames
	UnsupportedBeatmap
	StorageRejected
)

var kindNames = map[Kind]string{
	NameMismatch:        "name_mismatch",
	WrongSessionType:    "wrong_session_type",
	BannedAcronym:       "banned_acronym",
	TooManyHosts:        "too_many_hosts",
	ExcessWarmups:       "excess_warmups",
	NoStandardScores:    "no_standard_scores",
	InGameSelfHost:      "in_game_self_host",
	OversizedHeadToHead: "oversized_head_to_head",
	AsymmetricTeams:     "asymmetric_teams",
	TooManyPlayers:      "too_many_players",
	TooFewPlayers:       "too_few_players",
	InsufficientGames:   "insufficient_games",
	TooManyGames:        "too_many_games",
	UnsupportedBeatmap:  "unsupported_beatmap",
	StorageRejected:     "storage_rejected",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Set is an immutable collection of rejection kinds plus the ordered log of
// reasons that produced them. The zero value is an empty set.
type Set struct {
	flags   Kind
	reasons []string
}

// FromFlags rebuilds a Set from its persisted form.
func FromFlags(flags uint32, log string) Set {
	var reasons []string
	if log != "" {
		reasons = strings.Split(log, "\n")
	}
	return Set{flags: Kind(flags), reasons: reasons}
}

// With returns a copy of s with kind set and the formatted reason appended.
func (s Set) With(kind Kind, format string, args ...any) Set {
	reasons := make([]string, len(s.reasons), len(s.reasons)+1)
	copy(reasons, s.reasons)
	reasons = append(reasons, fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...)))
	return Set{flags: s.flags | kind, reasons: reasons}
}

// Merge returns the union of s and other, reasons of s first.
func (s Set) Merge(other Set) Set {
	if other.Empty() {
		return s
	}
	if s.Empty() {
		return other
	}
	reasons := make([]string, 0, len(s.reasons)+len(other.reasons))
	reasons = append(reasons, s.reasons...)
	reasons = append(reasons, other.reasons...)
	return Set{flags: s.flags | other.flags, reasons: reasons}
}

func (s Set) Has(kind Kind) bool { return s.flags&kind != 0 }

func (s Set) Empty() bool { return s.flags == 0 }

func (s Set) Flags() uint32 { return uint32(s.flags) }

func (s Set) Reasons() []string {
	out := make([]string, len(s.reasons))
	copy(out, s.reasons)
	return out
}

func (s Set) Log() string { return strings.Join(s.reasons, "\n") }

// Kinds lists the set kinds in bit order.
func (s Set) Kinds() []Kind {
	out := make([]Kind, 0, bits.OnesCount32(uint32(s.flags)))
	for f := uint32(s.flags); f != 0; f &= f - 1 {
		out = append(out, Kind(f&-f))
	}
	return out
}

func (s Set) String() string {
	names := make([]string, 0, len(s.Kinds()))
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ",")
}
