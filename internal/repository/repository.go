package repository

import (
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// chunks calls fn with consecutive slices of at most size elements.
func chunks[T any](items []T, size int, fn func([]T) error) error {
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		if err := fn(items[i:end]); err != nil {
			return err
		}
	}
	return nil
}
