package api

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"osu-mp-tracker/internal/config"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const frameBody = `{
  "match": {"id": 5, "name": "ABC: (Red) vs (Blue)", "start_time": "2024-03-01T18:00:00Z", "end_time": null},
  "users": [],
  "events": [{"id": 11, "timestamp": "2024-03-01T18:00:00Z", "detail": {"type": "match-created"}}],
  "current_game_id": null,
  "latest_event_id": 12
}`

type fakeOsu struct {
	tokens    atomic.Int32
	flaky     atomic.Int32
	lastAuth  atomic.Value
	lastAfter atomic.Value
}

func (f *fakeOsu) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	if path == "/oauth/token" {
		f.tokens.Add(1)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"access_token": "tok", "expires_in": 86400, "token_type": "Bearer"}`)
		return
	}
	f.lastAuth.Store(string(ctx.Request.Header.Peek("Authorization")))
	if ctx.QueryArgs().Has("after") {
		f.lastAfter.Store(string(ctx.QueryArgs().Peek("after")))
	} else {
		f.lastAfter.Store("")
	}
	ctx.Response.Header.Set("X-Ratelimit-Remaining", "41")

	switch path {
	case "/api/v2/matches":
		if string(ctx.QueryArgs().Peek("cursor[match_id]")) != "3" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.SetBodyString(`{"matches": [{"id": 3, "name": "old"}, {"id": 4, "name": "a"}, {"id": 5, "name": "b"}]}`)
	case "/api/v2/matches/5":
		if string(ctx.QueryArgs().Peek("after")) != "10" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.SetBodyString(frameBody)
	case "/api/v2/matches/8":
		ctx.SetBodyString(frameBody)
	case "/api/v2/matches/7":
		if f.flaky.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusBadGateway)
			return
		}
		ctx.SetBodyString(frameBody)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*OsuClient, *fakeOsu) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	fake := &fakeOsu{}
	go fasthttp.Serve(ln, fake.handle) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })

	cfg := &config.Config{
		OsuClientID:      "id",
		OsuClientSecret:  "secret",
		OsuAPIURL:        "http://osu.test",
		UpstreamRequests: 1000,
		UpstreamInterval: time.Second,
	}
	c := NewOsuClient(cfg, zerolog.Nop())
	c.client.Dial = func(string) (net.Conn, error) { return ln.Dial() }
	c.retryBase = time.Millisecond
	c.retryCap = 5 * time.Millisecond
	return c, fake
}

func TestGetSessionsSince(t *testing.T) {
	c, fake := newTestClient(t)

	got, err := c.GetSessionsSince(context.Background(), 3)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(got) != 2 || got[0].ID != 4 || got[1].ID != 5 {
		t.Fatalf("unexpected sessions %+v", got)
	}
	if auth, _ := fake.lastAuth.Load().(string); auth != "Bearer tok" {
		t.Fatalf("authorization header = %q", auth)
	}
	if info := c.GetRateLimitInfo(); info.Remaining != 41 {
		t.Fatalf("rate limit not tracked: %+v", info)
	}
}

func TestGetFrame(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	frame, err := c.GetFrame(ctx, 5, 10)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if frame.Snapshot.LatestEventID != 12 || !frame.Snapshot.HasMore() {
		t.Fatalf("unexpected snapshot %+v", frame.Snapshot)
	}
	if string(frame.Raw) != frameBody {
		t.Fatalf("raw body not preserved")
	}

	if _, err := c.GetFrame(ctx, 5, 10); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if n := fake.tokens.Load(); n != 1 {
		t.Fatalf("token fetched %d times", n)
	}

	if _, err := c.GetFrame(ctx, 8, 0); err != nil {
		t.Fatalf("root frame: %v", err)
	}
	if after, _ := fake.lastAfter.Load().(string); after != "0" {
		t.Fatalf("root fetch sent after=%q, want 0", after)
	}
}

func TestGetFrameNotFound(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.GetFrame(context.Background(), 404, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFrameRetriesTransientErrors(t *testing.T) {
	c, fake := newTestClient(t)
	if _, err := c.GetFrame(context.Background(), 7, 0); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if n := fake.flaky.Load(); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.GetFrame(ctx, 5, 0); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a bad request error, got %v", err)
	}
}
