package capture

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/checkcells/checkcells/internal/log"
	"github.com/checkcells/checkcells/internal/types"
)

// ErrInvalidTransition indicates a session method was called in a state
// that does not permit it.
var ErrInvalidTransition = errors.New("capture: invalid session transition")

// Session is the state machine for one take:
// Idle → Recording → PendingReview → Accepted | Rejected.
//
// A Session is single-use: once terminal, the workflow creates a fresh one
// for the next take. The camera stream is not owned here; it belongs to the
// DeviceManager and outlives individual sessions.
type Session struct {
	state    types.SessionState
	maxClip  time.Duration
	now      func() time.Time
	mimeType string

	buf       bytes.Buffer
	startedAt time.Time

	blob     []byte
	duration time.Duration
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock overrides the session's time source, for deterministic tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// WithMimeType sets the media type of the accumulated chunks.
func WithMimeType(mt string) SessionOption {
	return func(s *Session) {
		s.mimeType = mt
	}
}

// NewSession creates an idle session with the given hard recording cap.
func NewSession(maxClip time.Duration, opts ...SessionOption) *Session {
	s := &Session{
		state:    types.SessionIdle,
		maxClip:  maxClip,
		now:      time.Now,
		mimeType: "video/webm",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current session state.
func (s *Session) State() types.SessionState {
	return s.state
}

// Start begins recording. Valid only in Idle.
func (s *Session) Start() error {
	if err := s.transition(types.SessionRecording); err != nil {
		return err
	}
	s.startedAt = s.now()
	return nil
}

// AppendChunk adds a media chunk to the in-progress recording. Valid only
// while Recording. If the hard cap has been reached the session auto-stops
// after adding the chunk, exactly as if Stop had been called.
func (s *Session) AppendChunk(chunk []byte) error {
	if s.state != types.SessionRecording {
		return fmt.Errorf("%w: append chunk in %s", ErrInvalidTransition, s.state)
	}
	s.buf.Write(chunk)
	if s.Elapsed() >= s.maxClip {
		return s.Stop()
	}
	return nil
}

// Elapsed returns the recording time so far. Zero unless Recording.
func (s *Session) Elapsed() time.Duration {
	if s.state != types.SessionRecording {
		return 0
	}
	return s.now().Sub(s.startedAt)
}

// CheckCap auto-stops the session when the hard recording cap is reached.
// Intended to be driven by the caller's timer; reports whether a stop
// happened. No-op outside Recording.
func (s *Session) CheckCap() (bool, error) {
	if s.state != types.SessionRecording || s.Elapsed() < s.maxClip {
		return false, nil
	}
	return true, s.Stop()
}

// Stop finalizes the accumulated media into a single blob and moves the
// session to PendingReview. Valid only while Recording. The recorded
// duration is clamped to the hard cap.
func (s *Session) Stop() error {
	elapsed := s.Elapsed()
	if err := s.transition(types.SessionPendingReview); err != nil {
		return err
	}
	if elapsed > s.maxClip {
		elapsed = s.maxClip
	}
	s.blob = s.buf.Bytes()
	s.duration = elapsed
	return nil
}

// Duration returns the finalized recording duration. Zero before Stop.
func (s *Session) Duration() time.Duration {
	return s.duration
}

// Blob returns the finalized media. Nil before Stop and after Reject.
func (s *Session) Blob() []byte {
	return s.blob
}

// Accept produces the immutable Take for this recording with the given
// 1-based index and moves the session to its terminal Accepted state.
// Valid only in PendingReview.
func (s *Session) Accept(index int) (Take, error) {
	if index < 1 {
		return Take{}, fmt.Errorf("capture: take index must be positive, got %d", index)
	}
	if err := s.transition(types.SessionAccepted); err != nil {
		return Take{}, err
	}
	return Take{
		Index:      index,
		Media:      s.blob,
		MimeType:   s.mimeType,
		Duration:   s.duration,
		AcceptedAt: s.now(),
	}, nil
}

// Reject discards the recorded blob and moves the session to its terminal
// Rejected state. Valid only in PendingReview.
func (s *Session) Reject() error {
	if err := s.transition(types.SessionRejected); err != nil {
		return err
	}
	s.blob = nil
	s.buf.Reset()
	s.duration = 0
	return nil
}

func (s *Session) transition(target types.SessionState) error {
	if !s.state.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, s.state, target)
	}
	logger := log.WithComponent("capture")
	logger.Debug().
		Str(log.FieldEvent, "session.transition").
		Str(log.FieldOldState, s.state.String()).
		Str(log.FieldNewState, target.String()).
		Msg("session state changed")
	s.state = target
	return nil
}
