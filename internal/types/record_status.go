package types

import (
	"encoding/json"
	"fmt"
)

// RecordStatus represents the analysis status of a submitted test record.
type RecordStatus string

const (
	// RecordAnalyzing indicates the record was submitted and analysis is pending.
	RecordAnalyzing RecordStatus = "Analyzing"

	// RecordCompleted indicates analysis has finished.
	RecordCompleted RecordStatus = "Completed"
)

// String returns the string representation of the record status.
func (s RecordStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is one of the defined constants.
func (s RecordStatus) IsValid() bool {
	return s == RecordAnalyzing || s == RecordCompleted
}

// MarshalJSON implements json.Marshaler for RecordStatus.
func (s RecordStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler for RecordStatus.
func (s *RecordStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status := RecordStatus(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid record status: %q", str)
	}

	*s = status
	return nil
}
