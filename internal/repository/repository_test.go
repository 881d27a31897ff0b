package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"osu-mp-tracker/internal/database"
	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func openTestDB(t *testing.T) (*sql.DB, *db.Queries) {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB, db.New(sqlDB)
}

var t0 = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

func seedSessions(t *testing.T, repo *SessionRepository, sessions ...domain.Session) {
	t.Helper()
	for i := range sessions {
		if sessions[i].Status == "" {
			sessions[i].Status = domain.SessionInProgress
		}
		sessions[i].LastEventAt = sessions[i].StartTime
		sessions[i].CreatedAt = t0
		sessions[i].UpdatedAt = t0
	}
	if _, err := repo.InsertBatch(context.Background(), sessions); err != nil {
		t.Fatalf("insert sessions: %v", err)
	}
}

func TestSessionRepository(t *testing.T) {
	sqlDB, queries := openTestDB(t)
	repo := NewSessionRepository(sqlDB, queries, zerolog.Nop())
	ctx := context.Background()

	seedSessions(t, repo,
		domain.Session{ID: 1, Name: "lobby", StartTime: t0},
		domain.Session{ID: 2, Name: "ABC: (A) vs (B)", StartTime: t0.Add(time.Hour), IsTournament: true},
		domain.Session{ID: 3, Name: "other", StartTime: t0.Add(-time.Hour)},
	)

	n, err := repo.InsertBatch(ctx, []domain.Session{{ID: 1, Name: "dup", Status: domain.SessionInProgress, StartTime: t0, LastEventAt: t0, CreatedAt: t0, UpdatedAt: t0}})
	if err != nil || n != 0 {
		t.Fatalf("duplicate insert = %d, %v", n, err)
	}

	list, err := repo.ListInProgress(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []int64
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]int64{2, 1, 3}, ids); diff != "" {
		t.Fatalf("schedule order mismatch (-want +got):\n%s", diff)
	}

	s := list[1]
	end := t0.Add(30 * time.Minute)
	s.Cursor = 40
	s.EndTime = &end
	s.LastEventAt = end
	s.Status = domain.SessionCompleted
	if err := repo.SaveProgress(ctx, &s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Cursor != 40 || got.EndTime == nil || !got.EndTime.Equal(end) || got.Status != domain.SessionCompleted {
		t.Fatalf("progress not saved: %+v", got)
	}

	completed, err := repo.ListCompleted(ctx, 10)
	if err != nil || len(completed) != 1 || completed[0].ID != 1 {
		t.Fatalf("completed = %v, %v", completed, err)
	}

	if _, err := repo.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.SessionInProgress] != 2 || counts[domain.SessionCompleted] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestFrameRepository(t *testing.T) {
	sqlDB, queries := openTestDB(t)
	sessions := NewSessionRepository(sqlDB, queries, zerolog.Nop())
	frames := NewFrameRepository(sqlDB, queries, zerolog.Nop())
	ctx := context.Background()

	seedSessions(t, sessions, domain.Session{ID: 1, Name: "lobby", StartTime: t0})

	if has, err := frames.HasFrames(ctx, 1); err != nil || has {
		t.Fatalf("has = %v, %v", has, err)
	}
	for _, cursor := range []int64{20, 10, 20} {
		if _, err := frames.InsertFrame(ctx, domain.Frame{SessionID: 1, Cursor: cursor, Data: []byte{byte(cursor)}, CreatedAt: t0}); err != nil {
			t.Fatalf("insert frame: %v", err)
		}
	}
	list, err := frames.ListFrames(ctx, 1)
	if err != nil {
		t.Fatalf("list frames: %v", err)
	}
	if len(list) != 2 || list[0].Cursor != 10 || list[1].Cursor != 20 {
		t.Fatalf("unexpected frames %+v", list)
	}
	if has, _ := frames.HasFrames(ctx, 1); !has {
		t.Fatalf("expected frames")
	}
}

func TestCommitChunk(t *testing.T) {
	sqlDB, queries := openTestDB(t)
	sessions := NewSessionRepository(sqlDB, queries, zerolog.Nop())
	results := NewResultRepository(sqlDB, queries, zerolog.Nop())
	ratings := NewRatingRepository(sqlDB, queries, zerolog.Nop())
	history := NewHistoryRepository(sqlDB, queries, zerolog.Nop())
	players := NewPlayerRepository(sqlDB, queries, zerolog.Nop())
	ctx := context.Background()

	seedSessions(t, sessions,
		domain.Session{ID: 1, Name: "a", StartTime: t0, Status: domain.SessionCompleted},
		domain.Session{ID: 2, Name: "b", StartTime: t0, Status: domain.SessionCompleted},
	)

	rating := domain.Rating{
		PlayerID:             10,
		AttributeID:          0,
		Mu:                   26,
		Sigma:                8,
		StarRatings:          []float64{5.1, 6.2},
		Ordinal:              100,
		GamesPlayed:          1,
		WinAmount:            1,
		TotalOpponentsAmount: 1,
		CreatedAt:            t0,
		UpdatedAt:            t0,
	}
	chunk := ChunkResult{
		Ratings: []domain.Rating{rating},
		Sessions: []SessionResult{
			{
				SessionID: 1,
				Status:    domain.SessionRated,
				Histories: []domain.RatingHistory{{PlayerID: 10, SessionID: 1, GameID: 5, AttributeID: 0, NewMu: 26, ActualRank: 1, PredictedRank: 2, CreatedAt: t0}},
				PlayerHistories: []domain.PlayerHistory{
					{PlayerID: 10, SessionID: 1, SessionCost: 1.2, GamesPlayed: 3, CreatedAt: t0},
				},
				Players: []domain.Player{{ID: 10, Username: "alice", Country: "DE", UpdatedAt: t0}},
			},
			{
				SessionID: 2,
				Status:    domain.SessionRejected,
				Error:     &domain.CalculationError{SessionID: 2, Flags: 1, Log: "name_mismatch: nope"},
			},
		},
	}
	if err := results.CommitChunk(ctx, chunk); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := ratings.GetRatings(ctx, []int64{10, 11})
	if err != nil {
		t.Fatalf("get ratings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 rating, got %d", len(got))
	}
	if diff := cmp.Diff(rating.StarRatings, got[0].StarRatings); diff != "" {
		t.Fatalf("star ratings mismatch (-want +got):\n%s", diff)
	}
	if len(got[0].PPValues) != 0 || got[0].Mu != 26 {
		t.Fatalf("unexpected rating %+v", got[0])
	}

	hist, err := history.ListRatingHistory(ctx, 10, 0, 10)
	if err != nil || len(hist) != 1 {
		t.Fatalf("history = %v, %v", hist, err)
	}
	if hist[0].ID == "" || hist[0].PredictedRank != 2 {
		t.Fatalf("unexpected history row %+v", hist[0])
	}

	ph, err := history.ListPlayerHistory(ctx, 1)
	if err != nil || len(ph) != 1 || ph[0].SessionCost != 1.2 {
		t.Fatalf("player history = %v, %v", ph, err)
	}

	calcErr, err := history.GetCalculationError(ctx, 2)
	if err != nil || calcErr.Flags != 1 {
		t.Fatalf("calculation error = %v, %v", calcErr, err)
	}
	if _, err := history.GetCalculationError(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no error for rated session, got %v", err)
	}

	s, _ := sessions.Get(ctx, 2)
	if s.Status != domain.SessionRejected {
		t.Fatalf("status = %s", s.Status)
	}
	p, err := players.Get(ctx, 10)
	if err != nil || p.Username != "alice" {
		t.Fatalf("player = %v, %v", p, err)
	}

	leaders, err := ratings.Leaderboard(ctx, 0, 1, 10)
	if err != nil || len(leaders) != 1 {
		t.Fatalf("leaderboard = %v, %v", leaders, err)
	}
}

func TestCommitChunkRollsBack(t *testing.T) {
	sqlDB, queries := openTestDB(t)
	results := NewResultRepository(sqlDB, queries, zerolog.Nop())
	ratings := NewRatingRepository(sqlDB, queries, zerolog.Nop())
	ctx := context.Background()

	chunk := ChunkResult{
		Ratings: []domain.Rating{{PlayerID: 10, Mu: 25, CreatedAt: t0, UpdatedAt: t0}},
		Sessions: []SessionResult{{
			SessionID: 404,
			Status:    domain.SessionRated,
			Histories: []domain.RatingHistory{{PlayerID: 10, SessionID: 404, GameID: 1, CreatedAt: t0}},
		}},
	}
	if err := results.CommitChunk(ctx, chunk); err == nil {
		t.Fatalf("expected foreign key failure for unknown session")
	}
	got, err := ratings.GetRatings(ctx, []int64{10})
	if err != nil {
		t.Fatalf("get ratings: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("failed chunk leaked %d ratings", len(got))
	}
}

func TestBeatmapAndState(t *testing.T) {
	_, queries := openTestDB(t)
	beatmaps := NewBeatmapRepository(queries, zerolog.Nop())
	state := NewStateRepository(queries, zerolog.Nop())
	ctx := context.Background()

	if d, err := beatmaps.Get(ctx, 1, 64); err != nil || d != nil {
		t.Fatalf("expected empty cache, got %v %v", d, err)
	}
	want := domain.DifficultyAttributes{StarRating: 6.1, ApproachRate: 10.3, BPM: 240}
	if err := beatmaps.Upsert(ctx, domain.BeatmapDifficulty{BeatmapID: 1, Mods: 64, Attributes: want, CreatedAt: t0}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	d, err := beatmaps.Get(ctx, 1, 64)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(want, d.Attributes); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}

	v, err := state.GetInt64(ctx, "discovery_cursor", 7)
	if err != nil || v != 7 {
		t.Fatalf("fallback = %d, %v", v, err)
	}
	if err := state.SetInt64(ctx, "discovery_cursor", 123); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := state.GetInt64(ctx, "discovery_cursor", 7); v != 123 {
		t.Fatalf("state = %d", v)
	}
}
