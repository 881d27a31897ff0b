package db

import (
	"database/sql"
	"time"
)

type Session struct {
	ID           int64
	Name         string
	Status       string
	StartTime    time.Time
	EndTime      sql.NullTime
	Cursor       int64
	LastEventAt  time.Time
	IsTournament bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

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
	AvatarUrl string
	UpdatedAt time.Time
}

type Rating struct {
	PlayerID             int64
	AttributeID          int64
	Mu                   float64
	Sigma                float64
	StarRatings          string
	PpValues             string
	Ordinal              float64
	GamesPlayed          int64
	WinAmount            int64
	TotalOpponentsAmount int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type RatingHistory struct {
	ID            string
	PlayerID      int64
	SessionID     int64
	GameID        int64
	AttributeID   int64
	OldMu         float64
	NewMu         float64
	OldSigma      float64
	NewSigma      float64
	OldOrdinal    float64
	NewOrdinal    float64
	StarRating    float64
	ActualRank    int64
	PredictedRank int64
	CreatedAt     time.Time
}

type PlayerHistory struct {
	PlayerID    int64
	SessionID   int64
	SessionCost float64
	GamesPlayed int64
	CreatedAt   time.Time
}

type CalculationError struct {
	SessionID int64
	Flags     int64
	Log       string
	CreatedAt time.Time
}

type BeatmapDifficulty struct {
	BeatmapID  int64
	Mods       int64
	Attributes string
	CreatedAt  time.Time
}
