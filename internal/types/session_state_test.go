package types

import (
	"encoding/json"
	"testing"
)

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  string
	}{
		{"idle", SessionIdle, "idle"},
		{"recording", SessionRecording, "recording"},
		{"pending review", SessionPendingReview, "pending_review"},
		{"accepted", SessionAccepted, "accepted"},
		{"rejected", SessionRejected, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("SessionState.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  bool
	}{
		{"idle valid", SessionIdle, true},
		{"recording valid", SessionRecording, true},
		{"pending review valid", SessionPendingReview, true},
		{"accepted valid", SessionAccepted, true},
		{"rejected valid", SessionRejected, true},
		{"invalid empty", SessionState(""), false},
		{"invalid unknown", SessionState("paused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.want {
				t.Errorf("SessionState.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionState_IsTerminal(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  bool
	}{
		{"idle not terminal", SessionIdle, false},
		{"recording not terminal", SessionRecording, false},
		{"pending review not terminal", SessionPendingReview, false},
		{"accepted terminal", SessionAccepted, true},
		{"rejected terminal", SessionRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("SessionState.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from SessionState
		to   SessionState
		want bool
	}{
		{"idle to recording", SessionIdle, SessionRecording, true},
		{"idle to pending review", SessionIdle, SessionPendingReview, false},
		{"idle to accepted", SessionIdle, SessionAccepted, false},
		{"recording to pending review", SessionRecording, SessionPendingReview, true},
		{"recording to accepted", SessionRecording, SessionAccepted, false},
		{"recording to idle", SessionRecording, SessionIdle, false},
		{"pending review to accepted", SessionPendingReview, SessionAccepted, true},
		{"pending review to rejected", SessionPendingReview, SessionRejected, true},
		{"pending review to recording", SessionPendingReview, SessionRecording, false},
		{"accepted terminal", SessionAccepted, SessionIdle, false},
		{"rejected terminal", SessionRejected, SessionRecording, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%v → %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSessionState_UnmarshalJSON(t *testing.T) {
	var s SessionState
	if err := json.Unmarshal([]byte(`"recording"`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != SessionRecording {
		t.Errorf("got %v, want %v", s, SessionRecording)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &s); err == nil {
		t.Error("expected error for invalid state")
	}
}

func TestStorageLocation_IsValid(t *testing.T) {
	tests := []struct {
		name string
		loc  StorageLocation
		want bool
	}{
		{"remote valid", StorageRemote, true},
		{"local valid", StorageLocal, true},
		{"invalid empty", StorageLocation(""), false},
		{"invalid unknown", StorageLocation("cloud"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.IsValid(); got != tt.want {
				t.Errorf("StorageLocation.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordStatus_UnmarshalJSON(t *testing.T) {
	var s RecordStatus
	if err := json.Unmarshal([]byte(`"Analyzing"`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != RecordAnalyzing {
		t.Errorf("got %v, want %v", s, RecordAnalyzing)
	}

	if err := json.Unmarshal([]byte(`"pending"`), &s); err == nil {
		t.Error("expected error for invalid status")
	}
}
