package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/klipach/cozycurated/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is a Store backed by Cloud Firestore. A record path maps to a
// document path, so records live at even-depth paths such as users/{uid} and
// Push targets collections such as contacts.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) doc(path string) (*firestore.DocumentRef, string, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, "", err
	}
	doc := f.client.Doc(path)
	if doc == nil {
		return nil, "", fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	return doc, path, nil
}

func (f *Firestore) Get(ctx context.Context, path string) (Snapshot, error) {
	doc, path, err := f.doc(path)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Snapshot{Path: path}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return documentSnapshot(path, snap)
}

func (f *Firestore) Set(ctx context.Context, path string, v any) error {
	doc, _, err := f.doc(path)
	if err != nil {
		return err
	}
	data, err := toDocument(v)
	if err != nil {
		return err
	}
	_, err = doc.Set(ctx, data)
	return err
}

func (f *Firestore) Push(ctx context.Context, path string, v any) (string, error) {
	path, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	coll := f.client.Collection(path)
	if coll == nil {
		return "", fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, path)
	}
	data, err := toDocument(v)
	if err != nil {
		return "", err
	}
	doc := coll.NewDoc()
	if _, err := doc.Set(ctx, data); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (f *Firestore) Watch(ctx context.Context, path string) (<-chan Snapshot, error) {
	doc, path, err := f.doc(path)
	if err != nil {
		return nil, err
	}
	it := doc.Snapshots(ctx)

	snap, err := it.Next()
	if err != nil {
		it.Stop()
		return nil, err
	}
	first, err := documentSnapshot(path, snap)
	if err != nil {
		it.Stop()
		return nil, err
	}

	ch := make(chan Snapshot, 1)
	ch <- first

	go func() {
		defer close(ch)
		defer it.Stop()
		logger := log.LoggerFromContext(ctx).With(slog.String("path", path))

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
					logger.Error("firestore snapshot listener stopped", slog.String(log.ErrorMsgLogField, err.Error()))
				}
				return
			}
			next, err := documentSnapshot(path, snap)
			if err != nil {
				logger.Error("error while encoding snapshot", slog.String(log.ErrorMsgLogField, err.Error()))
				continue
			}
			offer(ch, next)
		}
	}()
	return ch, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func documentSnapshot(path string, snap *firestore.DocumentSnapshot) (Snapshot, error) {
	if snap == nil || !snap.Exists() {
		return Snapshot{Path: path}, nil
	}
	return snapshotOf(path, snap.Data())
}

// toDocument converts v into the map form Firestore stores, going through its
// JSON encoding so field names match the other backends. Integral numbers stay
// integers.
func toDocument(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	doc, ok := normalizeNumbers(decoded).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("firestore documents must be objects, got %s", raw)
	}
	return doc, nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
		return t
	default:
		return v
	}
}
