package server

import "time"

type PlayerRequest struct {
	PlayerID int64 `json:"player_id"`
}

type Player struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Country   string `json:"country"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Rating struct {
	AttributeID          int       `json:"attribute_id"`
	Attribute            string    `json:"attribute"`
	Mu                   float64   `json:"mu"`
	Sigma                float64   `json:"sigma"`
	Ordinal              float64   `json:"ordinal"`
	StarRating           float64   `json:"star_rating"`
	Status               string    `json:"status"`
	GamesPlayed          int       `json:"games_played"`
	WinAmount            int       `json:"win_amount"`
	TotalOpponentsAmount int       `json:"total_opponents_amount"`
	PPValues             []float64 `json:"pp_values,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type PlayerResponse struct {
	Player  Player   `json:"player"`
	Ratings []Rating `json:"ratings"`
}

type RatingHistoryRequest struct {
	PlayerID    int64 `json:"player_id"`
	AttributeID int   `json:"attribute_id"`
	Limit       int   `json:"limit"`
}

type RatingHistoryEntry struct {
	SessionID     int64     `json:"session_id"`
	GameID        int64     `json:"game_id"`
	OldMu         float64   `json:"old_mu"`
	NewMu         float64   `json:"new_mu"`
	OldSigma      float64   `json:"old_sigma"`
	NewSigma      float64   `json:"new_sigma"`
	OldOrdinal    float64   `json:"old_ordinal"`
	NewOrdinal    float64   `json:"new_ordinal"`
	StarRating    float64   `json:"star_rating"`
	ActualRank    int       `json:"actual_rank"`
	PredictedRank int       `json:"predicted_rank"`
	CreatedAt     time.Time `json:"created_at"`
}

type RatingHistoryResponse struct {
	History []RatingHistoryEntry `json:"history"`
}

type LeaderboardRequest struct {
	AttributeID int `json:"attribute_id"`
	Limit       int `json:"limit"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Player Player `json:"player"`
	Rating Rating `json:"rating"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type SessionRequest struct {
	SessionID int64 `json:"session_id"`
}

type SessionPlayer struct {
	PlayerID    int64   `json:"player_id"`
	SessionCost float64 `json:"session_cost"`
	GamesPlayed int     `json:"games_played"`
}

type SessionResponse struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Status       string          `json:"status"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      *time.Time      `json:"end_time,omitempty"`
	IsTournament bool            `json:"is_tournament"`
	Errors       []string        `json:"errors,omitempty"`
	Log          []string        `json:"log,omitempty"`
	Players      []SessionPlayer `json:"players"`
}

type Score struct {
	UserID     int64    `json:"user_id"`
	Team       string   `json:"team"`
	Mods       string   `json:"mods"`
	Accuracy   float64  `json:"accuracy"`
	MaxCombo   int      `json:"max_combo"`
	TotalScore int64    `json:"total_score"`
	PP         *float64 `json:"pp,omitempty"`
}

type Game struct {
	ID          int64      `json:"id"`
	BeatmapID   int64      `json:"beatmap_id"`
	Mods        string     `json:"mods"`
	ScoringType string     `json:"scoring_type"`
	TeamType    string     `json:"team_type"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Scores      []Score    `json:"scores"`
}

type SessionGamesResponse struct {
	Games []Game `json:"games"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Sessions map[string]int `json:"sessions"`
}
