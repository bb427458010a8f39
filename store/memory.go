package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/xid"
)

var errClosed = errors.New("store closed")

// Memory is an in-process Store for local development and tests.
type Memory struct {
	mu       sync.Mutex
	data     map[string]json.RawMessage
	watchers map[string]map[chan Snapshot]struct{}
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]json.RawMessage),
		watchers: make(map[string]map[chan Snapshot]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, path string) (Snapshot, error) {
	path, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(path), nil
}

func (m *Memory) Set(_ context.Context, path string, v any) error {
	path, err := CleanPath(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	if string(data) == "null" {
		delete(m.data, path)
	} else {
		m.data[path] = data
	}
	snap := m.snapshot(path)
	for ch := range m.watchers[path] {
		offer(ch, snap)
	}
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, v any) (string, error) {
	key := xid.New().String()
	if err := m.Set(ctx, Join(path, key), v); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Watch(ctx context.Context, path string) (<-chan Snapshot, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errClosed
	}
	ch := make(chan Snapshot, 1)
	ch <- m.snapshot(path)
	if m.watchers[path] == nil {
		m.watchers[path] = make(map[chan Snapshot]struct{})
	}
	m.watchers[path][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[path][ch]; ok {
			delete(m.watchers[path], ch)
			close(ch)
		}
	}()
	return ch, nil
}

// Keys lists the stored paths directly under parent.
func (m *Memory) Keys(parent string) []string {
	prefix := parent + "/"
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for p := range m.data {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			keys = append(keys, p[len(prefix):])
		}
	}
	return keys
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for path, chans := range m.watchers {
		for ch := range chans {
			close(ch)
		}
		delete(m.watchers, path)
	}
	return nil
}

func (m *Memory) snapshot(path string) Snapshot {
	data, ok := m.data[path]
	if !ok {
		return Snapshot{Path: path}
	}
	return Snapshot{Path: path, Exists: true, Data: append(json.RawMessage(nil), data...)}
}
