// Package types provides type-safe enumerations shared across the
// capture workflow and the upload backend.
package types

import (
	"encoding/json"
	"fmt"
)

// SessionState represents the current state of a recording session.
//
// SessionState provides type safety for session state management,
// preventing string-based typos and enabling exhaustive switch statements.
type SessionState string

// Session state constants define all possible states of a recording session.
const (
	// SessionIdle indicates the session has been created but recording has not started.
	SessionIdle SessionState = "idle"

	// SessionRecording indicates media chunks are being accumulated.
	SessionRecording SessionState = "recording"

	// SessionPendingReview indicates recording has stopped and the take awaits
	// the operator's accept/reject decision.
	SessionPendingReview SessionState = "pending_review"

	// SessionAccepted indicates the take was accepted and emitted. Terminal.
	SessionAccepted SessionState = "accepted"

	// SessionRejected indicates the take was discarded. Terminal.
	SessionRejected SessionState = "rejected"
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	return string(s)
}

// IsValid checks whether the state is one of the defined constants.
func (s SessionState) IsValid() bool {
	switch s {
	case SessionIdle, SessionRecording, SessionPendingReview, SessionAccepted, SessionRejected:
		return true
	default:
		return false
	}
}

// IsTerminal checks whether the state represents a final state.
//
// Terminal states are Accepted and Rejected. A session in a terminal state
// will not transition again; the workflow creates a fresh session for the
// next take.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionAccepted, SessionRejected:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks whether this state can transition to the target state.
//
// Valid transitions:
//   - Idle → Recording
//   - Recording → PendingReview
//   - PendingReview → Accepted, Rejected
//   - Terminal states cannot transition
func (s SessionState) CanTransitionTo(target SessionState) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case SessionIdle:
		return target == SessionRecording
	case SessionRecording:
		return target == SessionPendingReview
	case SessionPendingReview:
		return target == SessionAccepted || target == SessionRejected
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler for SessionState.
func (s SessionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler for SessionState.
func (s *SessionState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	state := SessionState(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid session state: %q", str)
	}

	*s = state
	return nil
}
