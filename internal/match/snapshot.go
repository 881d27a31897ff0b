package match

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event detail types reported by the multiplayer events endpoint.
const (
	EventMatchCreated   = "match-created"
	EventMatchDisbanded = "match-disbanded"
	EventHostChanged    = "host-changed"
	EventPlayerJoined   = "player-joined"
	EventPlayerLeft     = "player-left"
	EventPlayerKicked   = "player-kicked"
	EventOther          = "other"
)

// Team types and scoring types as reported on a game.
const (
	TeamTypeHeadToHead = "head-to-head"
	TeamTypeTeamVs     = "team-vs"
	TeamTypeTagCoop    = "tag-coop"
	TeamTypeTagTeamVs  = "tag-team-vs"

	ScoringScore    = "score"
	ScoringAccuracy = "accuracy"
	ScoringCombo    = "combo"
	ScoringScoreV2  = "scorev2"
)

type Snapshot struct {
	Match         Info    `json:"match"`
	Users         []User  `json:"users"`
	Events        []Event `json:"events"`
	CurrentGameID *int64  `json:"current_game_id"`
	LatestEventID int64   `json:"latest_event_id"`
}

type Info struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Country   string `json:"country_code"`
	AvatarURL string `json:"avatar_url"`
}

type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Detail    EventDetail `json:"detail"`
	UserID    *int64      `json:"user_id"`
	Game      *Game       `json:"game"`
}

type EventDetail struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Game struct {
	ID          int64      `json:"id"`
	BeatmapID   int64      `json:"beatmap_id"`
	Beatmap     Beatmap    `json:"beatmap"`
	Mode        string     `json:"mode"`
	ScoringType string     `json:"scoring_type"`
	TeamType    string     `json:"team_type"`
	Mods        Mods       `json:"mods"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Scores      []Score    `json:"scores"`
}

type Beatmap struct {
	ID   int64  `json:"id"`
	Mode string `json:"mode"`
}

type Score struct {
	GameID     int64      `json:"-"`
	UserID     int64      `json:"user_id"`
	Team       string     `json:"team"`
	Mods       Mods       `json:"mods"`
	Accuracy   float64    `json:"accuracy"`
	MaxCombo   int        `json:"max_combo"`
	Statistics Statistics `json:"statistics"`
	TotalScore int64      `json:"score"`
	PP         *float64   `json:"pp,omitempty"`
}

type Statistics struct {
	Count300  int `json:"count_300"`
	Count100  int `json:"count_100"`
	Count50   int `json:"count_50"`
	CountMiss int `json:"count_miss"`
}

// DecodeSnapshot parses one raw upstream frame.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	for i := range s.Events {
		g := s.Events[i].Game
		if g == nil {
			continue
		}
		if g.BeatmapID == 0 {
			g.BeatmapID = g.Beatmap.ID
		}
		for j := range g.Scores {
			g.Scores[j].GameID = g.ID
		}
	}
	return &s, nil
}

// LastEventID is the id of the newest event carried by the snapshot.
func (s *Snapshot) LastEventID() int64 {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].ID
}

// LastEventTime is the timestamp of the newest event, or the match start
// time when the snapshot has no events.
func (s *Snapshot) LastEventTime() time.Time {
	if len(s.Events) == 0 {
		return s.Match.StartTime
	}
	return s.Events[len(s.Events)-1].Timestamp
}

// HasMore reports whether the upstream holds events after this frame.
func (s *Snapshot) HasMore() bool {
	return s.LatestEventID > s.LastEventID()
}

// Games returns the games embedded in the event stream in event order.
func (s *Snapshot) Games() []*Game {
	var games []*Game
	for i := range s.Events {
		if s.Events[i].Game != nil {
			games = append(games, s.Events[i].Game)
		}
	}
	return games
}

func (s *Snapshot) Clone() Snapshot {
	out := Snapshot{
		Match:         s.Match.clone(),
		LatestEventID: s.LatestEventID,
		CurrentGameID: cloneInt64(s.CurrentGameID),
	}
	if s.Users != nil {
		out.Users = make([]User, len(s.Users))
		copy(out.Users, s.Users)
	}
	if s.Events != nil {
		out.Events = make([]Event, len(s.Events))
		for i := range s.Events {
			out.Events[i] = s.Events[i].Clone()
		}
	}
	return out
}

func (i Info) clone() Info {
	i.EndTime = cloneTime(i.EndTime)
	return i
}

func (e Event) Clone() Event {
	e.UserID = cloneInt64(e.UserID)
	if e.Game != nil {
		g := e.Game.Clone()
		e.Game = &g
	}
	return e
}

func (g Game) Clone() Game {
	g.EndTime = cloneTime(g.EndTime)
	if g.Scores != nil {
		scores := make([]Score, len(g.Scores))
		for i, s := range g.Scores {
			s.PP = cloneFloat64(s.PP)
			scores[i] = s
		}
		g.Scores = scores
	}
	return g
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat64(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
