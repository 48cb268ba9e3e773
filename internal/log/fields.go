package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldWorkflowID = "workflow_id"
	FieldSampleID   = "sample_id"
	FieldOperator   = "operator"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Capture fields
	FieldTake     = "take"
	FieldTakes    = "takes"
	FieldDuration = "duration_s"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Storage fields
	FieldStorage = "storage"
	FieldKey     = "key"
	FieldPath    = "path"
	FieldURL     = "url"
	FieldBytes   = "bytes"
)
