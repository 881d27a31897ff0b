package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"osu-mp-tracker/internal/api"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/framestore"
	"osu-mp-tracker/internal/match"
	"osu-mp-tracker/internal/repository"

	"github.com/rs/zerolog"
)

var start = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
	gets     int
}

func newFakeSessions(sessions ...domain.Session) *fakeSessions {
	f := &fakeSessions{sessions: make(map[int64]domain.Session)}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessions) InsertBatch(_ context.Context, sessions []domain.Session) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range sessions {
		if _, ok := f.sessions[s.ID]; ok {
			continue
		}
		f.sessions[s.ID] = s
		n++
	}
	return n, nil
}

func (f *fakeSessions) Get(_ context.Context, id int64) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessions) list(status domain.SessionStatus, limit int, less func(a, b domain.Session) bool) []domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.sessions {
		if s.Status == status {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeSessions) ListInProgress(_ context.Context, limit int) ([]domain.Session, error) {
	return f.list(domain.SessionInProgress, limit, func(a, b domain.Session) bool {
		if a.IsTournament != b.IsTournament {
			return a.IsTournament
		}
		return a.ID < b.ID
	}), nil
}

func (f *fakeSessions) ListCompleted(_ context.Context, limit int) ([]domain.Session, error) {
	return f.list(domain.SessionCompleted, limit, func(a, b domain.Session) bool {
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.ID < b.ID
	}), nil
}

func (f *fakeSessions) SaveProgress(_ context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeSessions) get(id int64) domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

type fakeState struct {
	values map[string]int64
}

func (f *fakeState) GetInt64(_ context.Context, key string, fallback int64) (int64, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return fallback, nil
}

func (f *fakeState) SetInt64(_ context.Context, key string, value int64) error {
	f.values[key] = value
	return nil
}

type memFrames struct {
	mu     sync.Mutex
	frames map[[2]int64]domain.Frame
}

func (m *memFrames) InsertFrame(_ context.Context, f domain.Frame) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{f.SessionID, f.Cursor}
	if _, ok := m.frames[key]; ok {
		return false, nil
	}
	m.frames[key] = f
	return true, nil
}

func (m *memFrames) ListFrames(_ context.Context, sessionID int64) ([]domain.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Frame
	for k, f := range m.frames {
		if k[0] == sessionID {
			f.Data = append([]byte(nil), f.Data...)
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cursor < out[j].Cursor })
	return out, nil
}

func (m *memFrames) HasFrames(ctx context.Context, sessionID int64) (bool, error) {
	frames, _ := m.ListFrames(ctx, sessionID)
	return len(frames) > 0, nil
}

func (m *memFrames) cursors(sessionID int64) []int64 {
	frames, _ := m.ListFrames(context.Background(), sessionID)
	out := make([]int64, len(frames))
	for i, f := range frames {
		out[i] = f.Cursor
	}
	return out
}

func newFrameStore() (*framestore.Store, *memFrames) {
	repo := &memFrames{frames: make(map[[2]int64]domain.Frame)}
	return framestore.New(repo, zerolog.Nop()), repo
}

// fakeUpstream serves frames keyed by (session, cursor) and a single
// discovery page.
type fakeUpstream struct {
	mu      sync.Mutex
	page    []api.SessionSummary
	frames  map[[2]int64]match.Snapshot
	gone    map[int64]bool
	fetches []int64
}

func (f *fakeUpstream) GetRateLimitInfo() api.RateLimitInfo {
	return api.RateLimitInfo{Limit: 60, Remaining: 7}
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{frames: make(map[[2]int64]match.Snapshot), gone: make(map[int64]bool)}
}

func (f *fakeUpstream) GetSessionsSince(_ context.Context, afterID int64) ([]api.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.SessionSummary
	for _, s := range f.page {
		if s.ID > afterID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeUpstream) GetFrame(_ context.Context, sessionID, cursor int64) (*api.FrameResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, cursor)
	if f.gone[sessionID] {
		return nil, api.ErrNotFound
	}
	snap, ok := f.frames[[2]int64{sessionID, cursor}]
	if !ok {
		return nil, errors.New("unexpected cursor")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	decoded, err := match.DecodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	return &api.FrameResponse{Raw: raw, Snapshot: decoded}, nil
}

func (f *fakeUpstream) serve(sessionID, cursor int64, snap match.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[[2]int64{sessionID, cursor}] = snap
}

type recordingResults struct {
	mu     sync.Mutex
	chunks []repository.ChunkResult
	fail   error
	// badSession fails any chunk that rates this session.
	badSession int64
}

func (r *recordingResults) CommitChunk(_ context.Context, chunk repository.ChunkResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	for _, s := range chunk.Sessions {
		if s.SessionID == r.badSession && s.Status == domain.SessionRated {
			return errors.New("UNIQUE constraint failed: rating_history.player_id")
		}
	}
	r.chunks = append(r.chunks, chunk)
	return nil
}

type memRatings struct{}

func (memRatings) GetRatings(context.Context, []int64) ([]domain.Rating, error) { return nil, nil }

func event(id int64, kind string, user int64) match.Event {
	e := match.Event{ID: id, Timestamp: start.Add(time.Duration(id) * time.Minute), Detail: match.EventDetail{Type: kind}}
	if user != 0 {
		e.UserID = ptr(user)
	}
	return e
}

func gameEvent(id, gameID int64, finished bool) match.Event {
	g := &match.Game{
		ID:          gameID,
		BeatmapID:   500 + gameID,
		Beatmap:     match.Beatmap{ID: 500 + gameID, Mode: "osu"},
		Mode:        "osu",
		ScoringType: match.ScoringScoreV2,
		TeamType:    match.TeamTypeHeadToHead,
		StartTime:   start,
	}
	if finished {
		g.EndTime = ptr(start.Add(time.Duration(id) * time.Minute))
		g.Scores = []match.Score{
			{UserID: 1, Accuracy: 0.98, MaxCombo: 600, TotalScore: 900000},
			{UserID: 2, Accuracy: 0.95, MaxCombo: 500, TotalScore: 700000},
		}
	}
	e := event(id, match.EventOther, 0)
	e.Game = g
	return e
}

func snapshot(name string, latest int64, events ...match.Event) match.Snapshot {
	return match.Snapshot{
		Match: match.Info{ID: 9, Name: name, StartTime: start},
		Users: []match.User{
			{ID: 1, Username: "alice", Country: "DE"},
			{ID: 2, Username: "bob", Country: "PL"},
		},
		Events:        events,
		LatestEventID: latest,
	}
}

func mustPut(t *testing.T, store *framestore.Store, sessionID, cursor int64, snap match.Snapshot) {
	t.Helper()
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Put(context.Background(), sessionID, cursor, raw); err != nil {
		t.Fatalf("put: %v", err)
	}
}
