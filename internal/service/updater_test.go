package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const tourney = "ABC: (Red) vs (Blue)"

func newTestUpdater(upstream *fakeUpstream, sessions *fakeSessions, frames FrameStore) *SessionUpdater {
	cfg := &config.Config{UpdateInterval: time.Minute, UpdateParallelism: 2}
	return NewSessionUpdater(upstream, sessions, frames, cfg, zerolog.Nop())
}

func inProgress(id int64) domain.Session {
	return domain.Session{ID: id, Name: tourney, Status: domain.SessionInProgress, StartTime: start, LastEventAt: start}
}

func TestUpdateFollowsPagesUntilEnd(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve(9, 0, snapshot(tourney, 5,
		event(1, match.EventMatchCreated, 1),
		event(2, match.EventPlayerJoined, 1),
		event(3, match.EventPlayerJoined, 2),
	))
	last := snapshot(tourney, 5,
		event(4, match.EventPlayerLeft, 2),
		event(5, match.EventMatchDisbanded, 0),
	)
	last.Match.EndTime = ptr(start.Add(time.Hour))
	upstream.serve(9, 3, last)

	sessions := newFakeSessions(inProgress(9))
	store, repo := newFrameStore()
	u := newTestUpdater(upstream, sessions, store)

	s := sessions.get(9)
	if err := u.Update(context.Background(), &s); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := sessions.get(9)
	if got.Status != domain.SessionCompleted || got.Cursor != 5 {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.EndTime == nil || !got.EndTime.Equal(start.Add(time.Hour)) {
		t.Fatalf("end time = %v", got.EndTime)
	}
	if !got.LastEventAt.Equal(start.Add(5 * time.Minute)) {
		t.Fatalf("last event at = %v", got.LastEventAt)
	}
	if diff := cmp.Diff([]int64{3, 5}, repo.cursors(9)); diff != "" {
		t.Fatalf("frame keys mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateRefetchesOngoingGame(t *testing.T) {
	upstream := newFakeUpstream()
	first := snapshot(tourney, 3,
		event(1, match.EventMatchCreated, 1),
		gameEvent(2, 7, true),
		gameEvent(3, 8, false),
	)
	first.CurrentGameID = ptr(int64(8))
	upstream.serve(9, 0, first)

	sessions := newFakeSessions(inProgress(9))
	store, _ := newFrameStore()
	u := newTestUpdater(upstream, sessions, store)
	ctx := context.Background()

	s := sessions.get(9)
	if err := u.Update(ctx, &s); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if got := sessions.get(9); got.Cursor != 2 || got.Status != domain.SessionInProgress {
		t.Fatalf("cursor should stop before the ongoing game: %+v", got)
	}

	upstream.serve(9, 2, snapshot(tourney, 3, gameEvent(3, 8, true)))
	s = sessions.get(9)
	if err := u.Update(ctx, &s); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if got := sessions.get(9); got.Cursor != 3 {
		t.Fatalf("cursor = %d, want 3", got.Cursor)
	}

	snap, err := store.Load(ctx, 9)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	games := snap.Games()
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	for _, g := range games {
		if g.EndTime == nil || len(g.Scores) != 2 {
			t.Fatalf("game %d not finished in merged snapshot", g.ID)
		}
	}
}

func TestUpdateIdleCompletion(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve(9, 3, snapshot(tourney, 3))

	s := inProgress(9)
	s.Cursor = 3
	sessions := newFakeSessions(s)
	store, _ := newFrameStore()
	mustPut(t, store, 9, 3, snapshot(tourney, 3, event(1, match.EventMatchCreated, 1)))
	u := newTestUpdater(upstream, sessions, store)
	ctx := context.Background()

	u.now = func() time.Time { return start.Add(time.Hour) }
	if err := u.Update(ctx, &s); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := sessions.get(9); got.Status != domain.SessionInProgress {
		t.Fatalf("session completed too early: %+v", got)
	}

	u.now = func() time.Time { return start.Add(3 * time.Hour) }
	if err := u.Update(ctx, &s); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := sessions.get(9)
	if got.Status != domain.SessionCompleted || got.EndTime == nil || !got.EndTime.Equal(start) {
		t.Fatalf("expected idle completion at last event, got %+v", got)
	}
	if diff := cmp.Diff([]int64{3, 3}, upstream.fetches); diff != "" {
		t.Fatalf("probe cursors mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateGoneSession(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.gone[9] = true
	sessions := newFakeSessions(inProgress(9))
	store, _ := newFrameStore()
	u := newTestUpdater(upstream, sessions, store)

	s := sessions.get(9)
	if err := u.Update(context.Background(), &s); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := sessions.get(9); got.Status != domain.SessionGone {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestRunOnceUpdatesEverySession(t *testing.T) {
	upstream := newFakeUpstream()
	sessions := newFakeSessions()
	for _, id := range []int64{9, 10, 11} {
		sessions.sessions[id] = inProgress(id)
		snap := snapshot(tourney, 1, event(1, match.EventMatchCreated, 1))
		snap.Match.EndTime = ptr(start)
		upstream.serve(id, 0, snap)
	}
	upstream.gone[11] = true
	store, _ := newFrameStore()
	var logs bytes.Buffer
	cfg := &config.Config{UpdateInterval: time.Minute, UpdateParallelism: 2}
	u := NewSessionUpdater(upstream, sessions, store, cfg, zerolog.New(zerolog.SyncWriter(&logs)).Level(zerolog.DebugLevel))

	if err := u.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !strings.Contains(logs.String(), `"ratelimit_remaining":7`) {
		t.Errorf("pass log lacks upstream quota: %s", logs.String())
	}
	for _, id := range []int64{9, 10} {
		if got := sessions.get(id); got.Status != domain.SessionCompleted {
			t.Errorf("session %d status = %s", id, got.Status)
		}
	}
	if got := sessions.get(11); got.Status != domain.SessionGone {
		t.Errorf("session 11 status = %s", got.Status)
	}
}
