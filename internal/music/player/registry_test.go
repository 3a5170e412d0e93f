package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry(&fakeDialer{}, &fakeOpener{}, time.Hour)
	t.Cleanup(r.Shutdown)

	a := r.GetOrCreate("g1")
	b := r.GetOrCreate("g1")
	assert.Same(t, a, b)

	c := r.GetOrCreate("g2")
	assert.NotSame(t, a, c)

	_, ok := r.Get("g1")
	assert.True(t, ok)
	_, ok = r.Get("g3")
	assert.False(t, ok)
}

func TestRegistryRemoveDisconnects(t *testing.T) {
	r := NewRegistry(&fakeDialer{}, &fakeOpener{}, time.Hour)
	t.Cleanup(r.Shutdown)

	s := r.GetOrCreate("g1")
	require.NoError(t, s.Connect(context.Background(), "chan-1"))

	r.Remove("g1")
	assert.Equal(t, StateDisconnected, s.State())
	_, ok := r.Get("g1")
	assert.False(t, ok)
}

func TestRegistryDropsSelfClosedSessions(t *testing.T) {
	dialer := &fakeDialer{}
	r := NewRegistry(dialer, &fakeOpener{}, 30*time.Millisecond)
	t.Cleanup(r.Shutdown)

	s := r.GetOrCreate("g1")
	require.NoError(t, s.Connect(context.Background(), "chan-1"))
	require.NoError(t, s.Enqueue(song("alpha")))
	waitState(t, s, StatePlaying)
	dialer.conn.finish(nil)

	// Playback over, queue empty: the idle timeout fires, the session
	// disconnects itself and must vanish from the registry.
	require.Eventually(t, func() bool {
		_, ok := r.Get("g1")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestRegistrySnapshot(t *testing.T) {
	dialer := &fakeDialer{}
	r := NewRegistry(dialer, &fakeOpener{}, time.Hour)
	t.Cleanup(r.Shutdown)

	s := r.GetOrCreate("g1")
	require.NoError(t, s.Connect(context.Background(), "chan-1"))
	require.NoError(t, s.Enqueue(song("alpha"), song("beta")))
	waitState(t, s, StatePlaying)

	infos := r.Snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, "g1", infos[0].GuildID)
	assert.Equal(t, string(StatePlaying), infos[0].State)
	assert.Equal(t, "alpha", infos[0].NowTitle)
	assert.Equal(t, 1, infos[0].QueueSize)
}

func TestRegistryShutdown(t *testing.T) {
	r := NewRegistry(&fakeDialer{}, &fakeOpener{}, time.Hour)
	a := r.GetOrCreate("g1")
	b := r.GetOrCreate("g2")

	r.Shutdown()
	assert.Equal(t, StateDisconnected, a.State())
	assert.Equal(t, StateDisconnected, b.State())
	assert.Empty(t, r.Snapshot())
}
