package match

import (
	"encoding/json"
	"testing"
)

func TestParseMods(t *testing.T) {
	tests := []struct {
		in   []string
		want Mods
	}{
		{nil, 0},
		{[]string{"HD", "HR"}, ModHidden | ModHardRock},
		{[]string{"nc"}, ModNightcore | ModDoubleTime},
		{[]string{"NF", "DT"}, ModNoFail | ModDoubleTime},
		{[]string{"HD", "4K"}, ModHidden | ModUnknown},
		{[]string{"RD", "TP"}, ModUnknown},
	}
	for _, tt := range tests {
		if got := ParseMods(tt.in); got != tt.want {
			t.Errorf("ParseMods(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := (ModHidden | ModUnknown).String(); got != "HD??" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestModsJSON(t *testing.T) {
	var fromList, fromInt Mods
	if err := json.Unmarshal([]byte(`["HD","DT"]`), &fromList); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if err := json.Unmarshal([]byte(`72`), &fromInt); err != nil {
		t.Fatalf("unmarshal int: %v", err)
	}
	if fromList != fromInt {
		t.Fatalf("list %d != int %d", fromList, fromInt)
	}
	if fromList.String() != "HDDT" {
		t.Fatalf("unexpected string %q", fromList.String())
	}
	if (ModNightcore | ModDoubleTime).String() != "NC" {
		t.Fatalf("nightcore should render as NC, got %q", (ModNightcore | ModDoubleTime).String())
	}
}

func TestDecodeSnapshot(t *testing.T) {
	raw := []byte(`{
		"match": {"id": 5, "name": "ABC: (Red) vs (Blue)", "start_time": "2024-03-01T18:00:00Z", "end_time": null},
		"users": [{"id": 1, "username": "a", "country_code": "DE"}],
		"events": [
			{"id": 10, "timestamp": "2024-03-01T18:00:00Z", "detail": {"type": "match-created"}, "user_id": 1},
			{"id": 11, "timestamp": "2024-03-01T18:05:00Z", "detail": {"type": "other"},
			 "game": {"id": 99, "beatmap": {"id": 123, "mode": "osu"}, "mode": "osu", "scoring_type": "scorev2",
			          "team_type": "team-vs", "mods": ["NF"], "start_time": "2024-03-01T18:05:00Z", "end_time": "2024-03-01T18:09:00Z",
			          "scores": [{"user_id": 1, "team": "red", "mods": ["HD"], "accuracy": 0.98, "max_combo": 500,
			                      "statistics": {"count_300": 400, "count_100": 5, "count_50": 0, "count_miss": 1}, "score": 700000}]}}
		],
		"current_game_id": null,
		"latest_event_id": 11
	}`)

	s, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	games := s.Games()
	if len(games) != 1 {
		t.Fatalf("expected one game, got %d", len(games))
	}
	g := games[0]
	if g.BeatmapID != 123 {
		t.Fatalf("beatmap id = %d, want 123", g.BeatmapID)
	}
	if g.Scores[0].GameID != 99 || g.Scores[0].Mods != ModHidden {
		t.Fatalf("unexpected score: %+v", g.Scores[0])
	}
	if s.HasMore() {
		t.Fatalf("snapshot should not report more events")
	}
}

func TestDecodeSnapshotKeepsUnknownMods(t *testing.T) {
	raw := []byte(`{
		"match": {"id": 6, "name": "mania lobby", "start_time": "2024-03-01T18:00:00Z", "end_time": null},
		"users": [],
		"events": [
			{"id": 1, "timestamp": "2024-03-01T18:00:00Z", "detail": {"type": "other"},
			 "game": {"id": 7, "beatmap": {"id": 1, "mode": "mania"}, "mode": "mania", "scoring_type": "score",
			          "team_type": "head-to-head", "mods": ["4K"], "start_time": "2024-03-01T18:00:00Z",
			          "scores": [{"user_id": 1, "mods": ["4K", "HD"], "accuracy": 0.9, "max_combo": 10,
			                      "statistics": {}, "score": 1000}]}}
		],
		"current_game_id": null,
		"latest_event_id": 1
	}`)

	s, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	g := s.Games()[0]
	if g.Mods != ModUnknown || g.Scores[0].Mods != ModHidden|ModUnknown {
		t.Fatalf("unexpected mods game=%d score=%d", g.Mods, g.Scores[0].Mods)
	}
}
