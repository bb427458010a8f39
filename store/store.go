// Package store is a path-addressed record store with live watches. Backends are
// the Firebase Realtime Database, Cloud Firestore, PostgreSQL and an in-process map.
// Every backend is last-write-wins per path and has no cross-path transactions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPath = errors.New("invalid store path")
	ErrNotExist    = errors.New("record does not exist")
)

// Snapshot is the JSON value stored at Path at some point in time.
type Snapshot struct {
	Path   string
	Exists bool
	Data   json.RawMessage
}

// Decode unmarshals the snapshot value into v.
func (s Snapshot) Decode(v any) error {
	if !s.Exists {
		return ErrNotExist
	}
	return json.Unmarshal(s.Data, v)
}

type Store interface {
	// Get reads the record at path. A missing record is not an error.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set overwrites the record at path with v.
	Set(ctx context.Context, path string, v any) error
	// Push appends v under path with a generated unique key and returns the key.
	Push(ctx context.Context, path string, v any) (string, error)
	// Watch delivers the current record at path and then every change to it.
	// Slow readers only see the latest snapshot. The channel is closed when ctx
	// is done or the watch can no longer continue.
	Watch(ctx context.Context, path string) (<-chan Snapshot, error)
	Close() error
}

// CleanPath trims surrounding slashes and validates each segment against the
// realtime database key rules.
func CleanPath(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || strings.ContainsAny(segment, ".$#[]") {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return path, nil
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func snapshotOf(path string, v any) (Snapshot, error) {
	if v == nil {
		return Snapshot{Path: path}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, Exists: true, Data: data}, nil
}

// offer sends s without blocking, replacing an undelivered older snapshot.
// Only the producing goroutine may call it.
func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
