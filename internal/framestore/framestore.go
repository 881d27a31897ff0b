package framestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
)

// Repository persists compressed frames. InsertFrame reports false when a
// frame with the same key already exists.
type Repository interface {
	InsertFrame(ctx context.Context, f domain.Frame) (bool, error)
	ListFrames(ctx context.Context, sessionID int64) ([]domain.Frame, error)
	HasFrames(ctx context.Context, sessionID int64) (bool, error)
}

// Store is an append-only (session, cursor) keyed frame store. Frames are
// brotli compressed at rest; callers only ever see raw bytes.
type Store struct {
	repo    Repository
	quality int
	logger  zerolog.Logger
}

func New(repo Repository, logger zerolog.Logger) *Store {
	return &Store{repo: repo, quality: brotli.DefaultCompression, logger: logger}
}

// Put stores one raw frame. Writing an existing key is a no-op.
func (s *Store) Put(ctx context.Context, sessionID, cursor int64, raw []byte) error {
	data, err := compress(raw, s.quality)
	if err != nil {
		return err
	}
	inserted, err := s.repo.InsertFrame(ctx, domain.Frame{
		SessionID: sessionID,
		Cursor:    cursor,
		Data:      data,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}
	if !inserted {
		s.logger.Debug().Int64("session_id", sessionID).Int64("cursor", cursor).Msg("frame already stored")
	}
	return nil
}

func (s *Store) Has(ctx context.Context, sessionID int64) (bool, error) {
	return s.repo.HasFrames(ctx, sessionID)
}

// List returns a session's frames in cursor order with Data decompressed.
func (s *Store) List(ctx context.Context, sessionID int64) ([]domain.Frame, error) {
	frames, err := s.repo.ListFrames(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	for i := range frames {
		raw, err := decompress(frames[i].Data)
		if err != nil {
			return nil, fmt.Errorf("frame %d/%d: %w", sessionID, frames[i].Cursor, err)
		}
		frames[i].Data = raw
	}
	return frames, nil
}

// Load folds every stored frame of a session into one snapshot. Each frame
// is cut at its ongoing game first; the finished game arrives in a later
// frame. It returns nil when the session has no frames.
func (s *Store) Load(ctx context.Context, sessionID int64) (*match.Snapshot, error) {
	frames, err := s.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}

	snaps := make([]match.Snapshot, 0, len(frames))
	for _, f := range frames {
		snap, err := match.DecodeSnapshot(f.Data)
		if err != nil {
			return nil, fmt.Errorf("frame %d/%d: %w", sessionID, f.Cursor, err)
		}
		snaps = append(snaps, match.TruncateOngoing(*snap))
	}
	merged := match.Fold(snaps...)
	return &merged, nil
}

func compress(raw []byte, quality int) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, quality)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress frame: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress frame: %w", err)
	}
	return raw, nil
}
