package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkcells/checkcells/internal/types"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestSession(t *testing.T, cap time.Duration) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewSession(cap, WithClock(clock.Now)), clock
}

func TestSession_HappyPath(t *testing.T) {
	s, clock := newTestSession(t, 15*time.Second)
	assert.Equal(t, types.SessionIdle, s.State())

	require.NoError(t, s.Start())
	assert.Equal(t, types.SessionRecording, s.State())

	require.NoError(t, s.AppendChunk([]byte("chunk-1")))
	clock.Advance(8 * time.Second)
	require.NoError(t, s.AppendChunk([]byte("chunk-2")))

	require.NoError(t, s.Stop())
	assert.Equal(t, types.SessionPendingReview, s.State())
	assert.Equal(t, 8*time.Second, s.Duration())
	assert.Equal(t, []byte("chunk-1chunk-2"), s.Blob())

	take, err := s.Accept(1)
	require.NoError(t, err)
	assert.Equal(t, types.SessionAccepted, s.State())
	assert.Equal(t, 1, take.Index)
	assert.Equal(t, 8*time.Second, take.Duration)
	assert.Equal(t, []byte("chunk-1chunk-2"), take.Media)
}

func TestSession_InvalidTransitions(t *testing.T) {
	s, _ := newTestSession(t, 15*time.Second)

	// Not recording yet.
	assert.ErrorIs(t, s.Stop(), ErrInvalidTransition)
	assert.ErrorIs(t, s.AppendChunk([]byte("x")), ErrInvalidTransition)
	_, err := s.Accept(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.Reject(), ErrInvalidTransition)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
	_, err = s.Accept(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrInvalidTransition)

	// Terminal states stay terminal.
	require.NoError(t, s.Reject())
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
	_, err = s.Accept(1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_HardCapAutoStops(t *testing.T) {
	s, clock := newTestSession(t, 15*time.Second)
	require.NoError(t, s.Start())

	clock.Advance(14 * time.Second)
	require.NoError(t, s.AppendChunk([]byte("a")))
	assert.Equal(t, types.SessionRecording, s.State())

	clock.Advance(2 * time.Second)
	require.NoError(t, s.AppendChunk([]byte("b")))
	assert.Equal(t, types.SessionPendingReview, s.State())
	// Duration is clamped to the cap.
	assert.Equal(t, 15*time.Second, s.Duration())
	assert.Equal(t, []byte("ab"), s.Blob())
}

func TestSession_CheckCap(t *testing.T) {
	s, clock := newTestSession(t, 15*time.Second)
	require.NoError(t, s.Start())

	stopped, err := s.CheckCap()
	require.NoError(t, err)
	assert.False(t, stopped)

	clock.Advance(15 * time.Second)
	stopped, err = s.CheckCap()
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.Equal(t, types.SessionPendingReview, s.State())

	// Idempotent once stopped.
	stopped, err = s.CheckCap()
	require.NoError(t, err)
	assert.False(t, stopped)
}

func TestSession_RejectDiscardsBlob(t *testing.T) {
	s, clock := newTestSession(t, 15*time.Second)
	require.NoError(t, s.Start())
	require.NoError(t, s.AppendChunk([]byte("recorded")))
	clock.Advance(3 * time.Second)
	require.NoError(t, s.Stop())

	require.NoError(t, s.Reject())
	assert.Equal(t, types.SessionRejected, s.State())
	assert.Nil(t, s.Blob())
}

func TestSession_AcceptRequiresPositiveIndex(t *testing.T) {
	s, _ := newTestSession(t, 15*time.Second)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())

	_, err := s.Accept(0)
	assert.Error(t, err)
	// The failed accept must not consume the pending review.
	assert.Equal(t, types.SessionPendingReview, s.State())
}
