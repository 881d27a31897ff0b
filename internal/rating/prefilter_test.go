package rating

import (
	"testing"

	"osu-mp-tracker/internal/calcerr"
	"osu-mp-tracker/internal/match"
)

func headToHead(id int64, users ...int64) match.Game {
	g := match.Game{ID: id, TeamType: match.TeamTypeHeadToHead, ScoringType: match.ScoringScoreV2}
	for i, u := range users {
		g.Scores = append(g.Scores, match.Score{
			GameID:     id,
			UserID:     u,
			Accuracy:   0.95,
			MaxCombo:   300,
			TotalScore: int64(500000 + i*1000),
		})
	}
	return g
}

func TestPrefilterOversizedHeadToHead(t *testing.T) {
	games := []match.Game{
		headToHead(1, 1, 2),
		headToHead(2, 1, 2, 3),
		headToHead(3, 1, 2),
		headToHead(4, 1, 2),
	}
	kept, errs, rejected := Prefilter(games)
	if rejected {
		t.Fatalf("session should not be rejected: %s", errs)
	}
	if !errs.Has(calcerr.OversizedHeadToHead) {
		t.Fatalf("expected oversized head-to-head flag, got %s", errs)
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 games kept, got %d", len(kept))
	}
	for _, g := range kept {
		if g.ID == 2 {
			t.Fatalf("oversized game was kept")
		}
	}
}

func TestPrefilterGameCount(t *testing.T) {
	two := []match.Game{headToHead(1, 1, 2), headToHead(2, 1, 2)}
	if _, errs, rejected := Prefilter(two); !rejected || !errs.Has(calcerr.InsufficientGames) {
		t.Fatalf("two games should be rejected as insufficient, got %v %s", rejected, errs)
	}

	three := append(two, headToHead(3, 1, 2))
	kept, errs, rejected := Prefilter(three)
	if rejected || len(kept) != 3 {
		t.Fatalf("three games should be accepted, got %v %d %s", rejected, len(kept), errs)
	}

	var many []match.Game
	for i := int64(1); i <= MaxSessionGames+1; i++ {
		many = append(many, headToHead(i, 1, 2))
	}
	if _, errs, rejected := Prefilter(many); !rejected || !errs.Has(calcerr.TooManyGames) {
		t.Fatalf("expected too many games, got %v %s", rejected, errs)
	}
}

func TestPrefilterScores(t *testing.T) {
	g := headToHead(1, 1, 2, 3)
	g.Scores[1].Accuracy = 0.4
	g.Scores[2].Mods = match.ModRelax

	kept, errs, rejected := Prefilter([]match.Game{g, headToHead(2, 1, 2), headToHead(3, 1, 2), headToHead(4, 1, 2)})
	if rejected {
		t.Fatalf("unexpected rejection: %s", errs)
	}
	if !errs.Has(calcerr.TooFewPlayers) {
		t.Fatalf("expected too few players, got %s", errs)
	}
	if len(kept) != 3 || kept[0].ID != 2 {
		t.Fatalf("game with one valid score should be dropped, kept %d", len(kept))
	}
}

func TestPrefilterAsymmetricTeams(t *testing.T) {
	g := match.Game{ID: 1, TeamType: match.TeamTypeTeamVs, Scores: []match.Score{
		{UserID: 1, Team: "red", Accuracy: 0.9},
		{UserID: 2, Team: "red", Accuracy: 0.9},
		{UserID: 3, Team: "blue", Accuracy: 0.9},
	}}
	_, errs, _ := Prefilter([]match.Game{g})
	if !errs.Has(calcerr.AsymmetricTeams) {
		t.Fatalf("expected asymmetric teams, got %s", errs)
	}
}

func TestPrefilterMixedSpeed(t *testing.T) {
	g := headToHead(1, 1, 2)
	g.Scores[0].Mods = match.ModDoubleTime | match.ModHidden
	games := []match.Game{g, headToHead(2, 1, 2), headToHead(3, 1, 2)}

	kept, _, rejected := Prefilter(games)
	if rejected {
		t.Fatalf("unexpected rejection")
	}
	if got := kept[0].Scores[0].Mods; got != match.ModHidden {
		t.Fatalf("speed mods not stripped: %s", got)
	}
	if games[0].Scores[0].Mods != match.ModDoubleTime|match.ModHidden {
		t.Fatalf("input game was mutated")
	}
}

func TestPrefilterDuplicateUser(t *testing.T) {
	games := []match.Game{
		headToHead(1, 1, 2, 2),
		headToHead(2, 1, 2),
		headToHead(3, 1, 2),
	}
	kept, errs, rejected := Prefilter(games)
	if rejected {
		t.Fatalf("session should not be rejected: %s", errs)
	}
	if errs.Has(calcerr.OversizedHeadToHead) {
		t.Fatalf("repeated user counted as a third player: %s", errs)
	}
	if n := len(kept[0].Scores); n != 2 {
		t.Fatalf("expected 2 scores after dedupe, got %d", n)
	}
	if kept[0].Scores[1].TotalScore != 501000 {
		t.Fatalf("expected the first score of user 2 to be kept, got %d", kept[0].Scores[1].TotalScore)
	}
}

func TestPrefilterUnknownMods(t *testing.T) {
	games := []match.Game{headToHead(1, 1, 2, 3), headToHead(2, 1, 2), headToHead(3, 1, 2)}
	games[0].TeamType = match.TeamTypeTeamVs
	games[0].Scores[0].Team, games[0].Scores[1].Team, games[0].Scores[2].Team = "red", "blue", "blue"
	games[0].Scores[2].Mods = match.ModUnknown
	kept, _, rejected := Prefilter(games)
	if rejected || len(kept) != 3 || len(kept[0].Scores) != 2 {
		t.Fatalf("unknown-mod score should be dropped, got rejected=%v kept=%d", rejected, len(kept))
	}
}
