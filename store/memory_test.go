package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name"`
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	snap, err := m.Get(ctx, "users/uid-1")
	require.NoError(t, err)
	assert.False(t, snap.Exists)

	require.NoError(t, m.Set(ctx, "users/uid-1", record{Name: "Jane"}))
	require.NoError(t, m.Set(ctx, "/users/uid-1/", record{Name: "Janet"}))

	snap, err = m.Get(ctx, "users/uid-1")
	require.NoError(t, err)
	var r record
	require.NoError(t, snap.Decode(&r))
	assert.Equal(t, "Janet", r.Name)

	assert.ErrorIs(t, m.Set(ctx, "users/a.b", record{}), ErrInvalidPath)
}

func TestMemoryPush(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	k1, err := m.Push(ctx, "contacts", record{Name: "a"})
	require.NoError(t, err)
	k2, err := m.Push(ctx, "contacts", record{Name: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.ElementsMatch(t, []string{k1, k2}, m.Keys("contacts"))

	snap, err := m.Get(ctx, Join("contacts", k1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a"}`, string(snap.Data))
}

func TestMemoryWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory()

	ch, err := m.Watch(ctx, "users/uid-1")
	require.NoError(t, err)

	first := <-ch
	assert.False(t, first.Exists)

	require.NoError(t, m.Set(context.Background(), "users/uid-1", record{Name: "Jane"}))
	select {
	case snap := <-ch:
		assert.True(t, snap.Exists)
		assert.JSONEq(t, `{"name":"Jane"}`, string(snap.Data))
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	// writes to other paths are not delivered
	require.NoError(t, m.Set(context.Background(), "users/uid-2", record{Name: "Joe"}))
	assert.Len(t, ch, 0)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryClose(t *testing.T) {
	m := NewMemory()
	ch, err := m.Watch(context.Background(), "users/uid-1")
	require.NoError(t, err)
	<-ch

	require.NoError(t, m.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.Error(t, m.Set(context.Background(), "users/uid-1", record{}))
	require.NoError(t, m.Close())
}
