package domain

import (
	"time"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionGone       SessionStatus = "gone"
	SessionRejected   SessionStatus = "rejected"
	SessionRated      SessionStatus = "rated"
)

// Session is one multiplayer lobby.
type Session struct {
	ID           int64
	Name         string
	Status       SessionStatus
	StartTime    time.Time
	EndTime      *time.Time
	Cursor       int64 // last fully merged event id
	LastEventAt  time.Time
	IsTournament bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Frame is one raw upstream response, uncompressed.
type Frame struct {
	SessionID int64
	Cursor    int64
	Data      []byte
	CreatedAt time.Time
}

type Player struct {
	ID        int64
	Username  string
	Country   string
	AvatarURL string
	UpdatedAt time.Time
}

type Rating struct {
	PlayerID             int64
	AttributeID          int
	Mu                   float64
	Sigma                float64
	StarRatings          []float64 // oldest first, capped
	PPValues             []float64 // best first, capped; pp attribute only
	Ordinal              float64
	GamesPlayed          int
	WinAmount            int
	TotalOpponentsAmount int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (r Rating) Clone() Rating {
	r.StarRatings = append([]float64(nil), r.StarRatings...)
	r.PPValues = append([]float64(nil), r.PPValues...)
	return r
}

type RatingHistory struct {
	ID            string // nanoid
	PlayerID      int64
	SessionID     int64
	GameID        int64
	AttributeID   int
	OldMu         float64
	NewMu         float64
	OldSigma      float64
	NewSigma      float64
	OldOrdinal    float64
	NewOrdinal    float64
	StarRating    float64
	ActualRank    int
	PredictedRank int
	CreatedAt     time.Time
}

type PlayerHistory struct {
	PlayerID    int64
	SessionID   int64
	SessionCost float64
	GamesPlayed int
	CreatedAt   time.Time
}

type CalculationError struct {
	SessionID int64
	Flags     uint32
	Log       string
	CreatedAt time.Time
}

// DifficultyAttributes is the chart-difficulty oracle output for one
// (beatmap, mods) pair.
type DifficultyAttributes struct {
	StarRating        float64 `json:"star_rating"`
	AimDifficulty     float64 `json:"aim_difficulty"`
	SpeedDifficulty   float64 `json:"speed_difficulty"`
	SpeedNoteCount    float64 `json:"speed_note_count"`
	SliderFactor      float64 `json:"slider_factor"`
	ApproachRate      float64 `json:"approach_rate"`
	OverallDifficulty float64 `json:"overall_difficulty"`
	CircleSize        float64 `json:"circle_size"`
	BPM               float64 `json:"bpm"`
	MaxCombo          int     `json:"max_combo"`
	HitCircleCount    int     `json:"hit_circle_count"`
	SliderCount       int     `json:"slider_count"`
	SpinnerCount      int     `json:"spinner_count"`
}

type BeatmapDifficulty struct {
	BeatmapID  int64
	Mods       uint32
	Attributes DifficultyAttributes
	CreatedAt  time.Time
}
