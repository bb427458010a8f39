package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klipach/cozycurated/log"
	"github.com/lib/pq"
	"github.com/rs/xid"
)

const (
	pgDriver        = "postgres"
	pgNotifyChannel = "store_records"

	pgSchema = `
CREATE TABLE IF NOT EXISTS records (
	path       TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

	pgSelect = `SELECT value FROM records WHERE path = $1`
	pgUpsert = `
INSERT INTO records (path, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	pgDelete = `DELETE FROM records WHERE path = $1`
	pgNotify = `SELECT pg_notify($1, $2)`
)

// Postgres is a self-hosted Store keeping one JSONB row per path. Writes NOTIFY
// the changed path and Watch LISTENs for it.
type Postgres struct {
	db  *sqlx.DB
	dsn string
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, pgDriver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{db: db, dsn: dsn}, nil
}

func (p *Postgres) Get(ctx context.Context, path string) (Snapshot, error) {
	path, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	var value []byte
	err = p.db.GetContext(ctx, &value, pgSelect, path)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{Path: path}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, Exists: true, Data: value}, nil
}

func (p *Postgres) Set(ctx context.Context, path string, v any) error {
	path, err := CleanPath(path)
	if err != nil {
		return err
	}
	snap, err := snapshotOf(path, v)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if snap.Exists && string(snap.Data) != "null" {
		_, err = tx.ExecContext(ctx, pgUpsert, path, string(snap.Data))
	} else {
		_, err = tx.ExecContext(ctx, pgDelete, path)
	}
	if err != nil {
		return err
	}
	// delivered to listeners on commit
	if _, err := tx.ExecContext(ctx, pgNotify, pgNotifyChannel, path); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) Push(ctx context.Context, path string, v any) (string, error) {
	key := xid.New().String()
	if err := p.Set(ctx, Join(path, key), v); err != nil {
		return "", err
	}
	return key, nil
}

func (p *Postgres) Watch(ctx context.Context, path string) (<-chan Snapshot, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	logger := log.LoggerFromContext(ctx).With(slog.String("path", path))

	listener := pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("postgres listener event", slog.Int("event", int(ev)), slog.String(log.ErrorMsgLogField, err.Error()))
		}
	})
	if err := listener.Listen(pgNotifyChannel); err != nil {
		listener.Close()
		return nil, err
	}

	first, err := p.Get(ctx, path)
	if err != nil {
		listener.Close()
		return nil, err
	}

	ch := make(chan Snapshot, 1)
	ch <- first

	go func() {
		defer close(ch)
		defer listener.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				if !affects(n, path) {
					continue
				}
				snap, err := p.Get(ctx, path)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("postgres read after notify failed", slog.String(log.ErrorMsgLogField, err.Error()))
					continue
				}
				offer(ch, snap)
			}
		}
	}()
	return ch, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// affects reports whether a notification may have changed path. A nil
// notification follows a reconnect, when changes could have been missed.
func affects(n *pq.Notification, path string) bool {
	if n == nil {
		return true
	}
	return n.Channel == pgNotifyChannel && n.Extra == path
}
