package rating

import (
	"osu-mp-tracker/internal/calcerr"
	"osu-mp-tracker/internal/match"
)

const (
	MinAccuracy      = 0.4
	MaxGamePlayers   = 8
	MinGamePlayers   = 2
	MinSessionGames  = 3
	MaxSessionGames  = 21
	maxHeadToHeadLen = 2
)

// ForbiddenMods are assistive or unrecognised toggles that invalidate a score.
const ForbiddenMods = match.ModRelax | match.ModAutopilot | match.ModAutoplay | match.ModCinema | match.ModTouchDevice | match.ModUnknown

// Prefilter drops unusable scores and games. A user appearing twice in one
// game keeps only the first score. rejected is true when the
// session as a whole must not be rated; errs carries the reasons either way.
func Prefilter(games []match.Game) (kept []match.Game, errs calcerr.Set, rejected bool) {
	for _, g := range games {
		g = g.Clone()

		scores := g.Scores[:0]
		seen := make(map[int64]struct{}, len(g.Scores))
		for _, s := range g.Scores {
			if s.Accuracy <= MinAccuracy || s.Mods.Any(ForbiddenMods) {
				continue
			}
			if _, dup := seen[s.UserID]; dup {
				continue
			}
			seen[s.UserID] = struct{}{}
			scores = append(scores, s)
		}
		g.Scores = scores

		switch {
		case len(g.Scores) < MinGamePlayers:
			errs = errs.With(calcerr.TooFewPlayers, "game %d has %d valid scores", g.ID, len(g.Scores))
			continue
		case len(g.Scores) > MaxGamePlayers:
			errs = errs.With(calcerr.TooManyPlayers, "game %d has %d valid scores", g.ID, len(g.Scores))
			continue
		case g.TeamType == match.TeamTypeHeadToHead && len(g.Scores) > maxHeadToHeadLen:
			errs = errs.With(calcerr.OversizedHeadToHead, "game %d has %d head-to-head scores", g.ID, len(g.Scores))
			continue
		case g.TeamType == match.TeamTypeTeamVs && !symmetric(g.Scores):
			errs = errs.With(calcerr.AsymmetricTeams, "game %d has uneven teams", g.ID)
			continue
		}

		stripMixedSpeed(&g)
		kept = append(kept, g)
	}

	switch {
	case len(kept) < MinSessionGames:
		return nil, errs.With(calcerr.InsufficientGames, "%d games left after filtering", len(kept)), true
	case len(kept) > MaxSessionGames:
		return nil, errs.With(calcerr.TooManyGames, "%d games left after filtering", len(kept)), true
	}
	return kept, errs, false
}

// symmetric reports whether exactly two sides with equal head counts played.
func symmetric(scores []match.Score) bool {
	sizes := make(map[string]int, 2)
	for _, s := range scores {
		sizes[s.Team]++
	}
	if len(sizes) != 2 {
		return false
	}
	var first int
	for _, n := range sizes {
		if first == 0 {
			first = n
			continue
		}
		return n == first
	}
	return false
}

// stripMixedSpeed removes speed-up mods from every score of a game in which
// only some players had them.
func stripMixedSpeed(g *match.Game) {
	var fast int
	for _, s := range g.Scores {
		if s.Mods.Any(match.ModSpeedUp) {
			fast++
		}
	}
	if fast == 0 || fast == len(g.Scores) {
		return
	}
	g.Mods &^= match.ModSpeedUp
	for i := range g.Scores {
		g.Scores[i].Mods &^= match.ModSpeedUp
	}
}
