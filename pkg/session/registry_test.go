package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id, room string) *Session {
	return &Session{
		ID:        id,
		Transport: newFakeTransport(),
		Queue:     NewQueue(),
		Config: ClientConfig{
			Room:        room,
			OutputTopic: OutputTopicForRoom(room),
		},
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	first := testSession("s1", "kitchen")
	require.NoError(t, r.Register(first))

	// The duplicate is rejected, never replaces the existing entry.
	dup := testSession("s1", "bedroom")
	assert.ErrorIs(t, r.Register(dup), ErrDuplicateSession)
	assert.Equal(t, 1, r.Count())
}

func TestDeregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := testSession("s1", "kitchen")
	require.NoError(t, r.Register(s))
	r.AddRoute(s.Config.OutputTopic, s.Queue)

	r.Deregister("s1")
	assert.Zero(t, r.Count())
	_, ok := r.QueueFor(s.Config.OutputTopic)
	assert.False(t, ok)

	// Second invocation (outer cleanup after an error path) must not panic
	// and must not change anything.
	r.Deregister("s1")
	r.Deregister("never-existed")
	assert.Zero(t, r.Count())
}

func TestDeregisterRemovesTopicRoute(t *testing.T) {
	r := NewRegistry()
	s1 := testSession("s1", "r1")
	s2 := testSession("s2", "r2")
	require.NoError(t, r.Register(s1))
	require.NoError(t, r.Register(s2))
	r.AddRoute(s1.Config.OutputTopic, s1.Queue)
	r.AddRoute(s2.Config.OutputTopic, s2.Queue)

	r.Deregister("s1")

	_, ok := r.QueueFor("assistant/r1/output")
	assert.False(t, ok)
	q, ok := r.QueueFor("assistant/r2/output")
	require.True(t, ok)
	assert.Same(t, s2.Queue, q)
}

func TestBroadcastQueuesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	s1 := testSession("s1", "r1")
	s2 := testSession("s2", "r2")
	s3 := testSession("s3", "r3")
	for _, s := range []*Session{s1, s2, s3} {
		require.NoError(t, r.Register(s))
	}

	queues := r.BroadcastQueues()
	require.Len(t, queues, 3)
	assert.Same(t, s1.Queue, queues[0])
	assert.Same(t, s2.Queue, queues[1])
	assert.Same(t, s3.Queue, queues[2])

	r.Deregister("s2")
	queues = r.BroadcastQueues()
	require.Len(t, queues, 2)
	assert.Same(t, s1.Queue, queues[0])
	assert.Same(t, s3.Queue, queues[1])
}

func TestCloseAllForcesTransports(t *testing.T) {
	r := NewRegistry()
	s1 := testSession("s1", "r1")
	s2 := testSession("s2", "r2")
	require.NoError(t, r.Register(s1))
	require.NoError(t, r.Register(s2))

	r.CloseAll(CloseUpstreamLost, "upstream unavailable")

	for _, s := range []*Session{s1, s2} {
		closed, code := s.Transport.(*fakeTransport).closeStatus()
		assert.True(t, closed)
		assert.Equal(t, CloseUpstreamLost, code)
	}
}
