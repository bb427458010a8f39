package store

import (
	"context"
	"log/slog"
	"time"

	"firebase.google.com/go/v4/db"
	"github.com/klipach/cozycurated/log"
)

// Realtime is a Store backed by the Firebase Realtime Database. The Admin SDK has
// no streaming listener, so Watch polls with ETag-conditional reads.
type Realtime struct {
	client       *db.Client
	pollInterval time.Duration
}

func NewRealtime(client *db.Client, pollInterval time.Duration) *Realtime {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Realtime{client: client, pollInterval: pollInterval}
}

func (r *Realtime) Get(ctx context.Context, path string) (Snapshot, error) {
	path, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	var v any
	if err := r.client.NewRef(path).Get(ctx, &v); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(path, v)
}

func (r *Realtime) Set(ctx context.Context, path string, v any) error {
	path, err := CleanPath(path)
	if err != nil {
		return err
	}
	return r.client.NewRef(path).Set(ctx, v)
}

func (r *Realtime) Push(ctx context.Context, path string, v any) (string, error) {
	path, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	ref, err := r.client.NewRef(path).Push(ctx, v)
	if err != nil {
		return "", err
	}
	return ref.Key, nil
}

func (r *Realtime) Watch(ctx context.Context, path string) (<-chan Snapshot, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	ref := r.client.NewRef(path)

	var v any
	etag, err := ref.GetWithETag(ctx, &v)
	if err != nil {
		return nil, err
	}
	first, err := snapshotOf(path, v)
	if err != nil {
		return nil, err
	}

	ch := make(chan Snapshot, 1)
	ch <- first

	go func() {
		defer close(ch)
		logger := log.LoggerFromContext(ctx).With(slog.String("path", path))
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			var next any
			changed, newETag, err := ref.GetIfChanged(ctx, etag, &next)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("realtime database poll failed", slog.String(log.ErrorMsgLogField, err.Error()))
				continue
			}
			if !changed {
				continue
			}
			etag = newETag
			snap, err := snapshotOf(path, next)
			if err != nil {
				logger.Error("error while encoding snapshot", slog.String(log.ErrorMsgLogField, err.Error()))
				continue
			}
			offer(ch, snap)
		}
	}()
	return ch, nil
}

// Close is a no-op, the database client holds no connection of its own.
func (r *Realtime) Close() error {
	return nil
}
