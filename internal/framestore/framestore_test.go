package framestore

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"osu-mp-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type memRepo struct {
	frames map[[2]int64]domain.Frame
}

func newMemRepo() *memRepo {
	return &memRepo{frames: make(map[[2]int64]domain.Frame)}
}

func (m *memRepo) InsertFrame(_ context.Context, f domain.Frame) (bool, error) {
	key := [2]int64{f.SessionID, f.Cursor}
	if _, ok := m.frames[key]; ok {
		return false, nil
	}
	m.frames[key] = f
	return true, nil
}

func (m *memRepo) ListFrames(_ context.Context, sessionID int64) ([]domain.Frame, error) {
	var out []domain.Frame
	for k, f := range m.frames {
		if k[0] == sessionID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cursor < out[j].Cursor })
	return out, nil
}

func (m *memRepo) HasFrames(_ context.Context, sessionID int64) (bool, error) {
	for k := range m.frames {
		if k[0] == sessionID {
			return true, nil
		}
	}
	return false, nil
}

const firstFrame = `{
  "match": {"id": 9, "name": "ABC: (Red) vs (Blue)", "start_time": "2024-03-01T18:00:00Z", "end_time": null},
  "users": [{"id": 1, "username": "alice", "country_code": "DE"}],
  "events": [
    {"id": 1, "timestamp": "2024-03-01T18:00:00Z", "detail": {"type": "match-created"}, "user_id": 1},
    {"id": 2, "timestamp": "2024-03-01T18:01:00Z", "detail": {"type": "player-joined"}, "user_id": 1}
  ],
  "current_game_id": null,
  "latest_event_id": 4
}`

const secondFrame = `{
  "match": {"id": 9, "name": "ABC: (Red) vs (Blue)", "start_time": "2024-03-01T18:00:00Z", "end_time": "2024-03-01T19:00:00Z"},
  "users": [{"id": 2, "username": "bob", "country_code": "PL"}],
  "events": [
    {"id": 3, "timestamp": "2024-03-01T18:02:00Z", "detail": {"type": "player-joined"}, "user_id": 2},
    {"id": 4, "timestamp": "2024-03-01T18:59:00Z", "detail": {"type": "match-disbanded"}}
  ],
  "current_game_id": null,
  "latest_event_id": 4
}`

func TestPutCompressesAndListRestores(t *testing.T) {
	repo := newMemRepo()
	store := New(repo, zerolog.Nop())
	ctx := context.Background()

	raw := []byte(firstFrame)
	if err := store.Put(ctx, 9, 2, raw); err != nil {
		t.Fatalf("put: %v", err)
	}
	stored := repo.frames[[2]int64{9, 2}]
	if bytes.Equal(stored.Data, raw) {
		t.Fatalf("frame stored uncompressed")
	}

	if err := store.Put(ctx, 9, 2, []byte("ignored")); err != nil {
		t.Fatalf("duplicate put: %v", err)
	}

	frames, err := store.List(ctx, 9)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(frames) != 1 || !bytes.Equal(frames[0].Data, raw) {
		t.Fatalf("unexpected frames: %d", len(frames))
	}

	has, err := store.Has(ctx, 9)
	if err != nil || !has {
		t.Fatalf("has = %v, %v", has, err)
	}
	if has, _ := store.Has(ctx, 10); has {
		t.Fatalf("unexpected frames for session 10")
	}
}

func TestLoadFoldsFrames(t *testing.T) {
	store := New(newMemRepo(), zerolog.Nop())
	ctx := context.Background()

	if snap, err := store.Load(ctx, 9); err != nil || snap != nil {
		t.Fatalf("empty session should load nil, got %v %v", snap, err)
	}

	if err := store.Put(ctx, 9, 4, []byte(secondFrame)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, 9, 2, []byte(firstFrame)); err != nil {
		t.Fatalf("put: %v", err)
	}

	snap, err := store.Load(ctx, 9)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Events) != 4 || snap.LastEventID() != 4 {
		t.Fatalf("expected 4 merged events, got %d", len(snap.Events))
	}
	if len(snap.Users) != 2 {
		t.Fatalf("expected merged roster, got %d users", len(snap.Users))
	}
	if snap.Match.EndTime == nil {
		t.Fatalf("end time from the latest frame was lost")
	}
}
