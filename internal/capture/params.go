package capture

import (
	"fmt"
	"strings"
)

// TestParams holds the sample metadata entered before recording starts.
type TestParams struct {
	// Operator is the technologist name or ID.
	Operator string
	// SampleID is the test identifier (e.g. "TEST-000042").
	SampleID string
	// Volume in mL.
	Volume float64
	// DaysSincePrior is days since previous sample.
	DaysSincePrior int
	// Dilution factor.
	Dilution float64
}

// ParamLimits bounds the numeric sample parameters.
type ParamLimits struct {
	MaxVolume   float64
	MaxDays     int
	MinDilution float64
	MaxDilution float64
}

// DefaultParamLimits are the lab's accepted ranges.
func DefaultParamLimits() ParamLimits {
	return ParamLimits{
		MaxVolume:   100,
		MaxDays:     30,
		MinDilution: 1,
		MaxDilution: 1000,
	}
}

// FieldError is a field-level validation failure, surfaced next to the
// offending input rather than as a request error.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all field failures for one validation pass.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "invalid test parameters: " + strings.Join(msgs, "; ")
}

// Validate checks the params against the limits. A nil return means the
// params may be submitted; otherwise the error is a ValidationErrors and no
// network call should be made.
func (p TestParams) Validate(limits ParamLimits) error {
	var errs ValidationErrors

	if strings.TrimSpace(p.Operator) == "" {
		errs = append(errs, FieldError{Field: "operator", Message: "must not be empty"})
	}
	if strings.TrimSpace(p.SampleID) == "" {
		errs = append(errs, FieldError{Field: "sampleId", Message: "must not be empty"})
	}
	if p.Volume <= 0 || p.Volume > limits.MaxVolume {
		errs = append(errs, FieldError{
			Field:   "volume",
			Message: fmt.Sprintf("must be in (0, %v] mL", limits.MaxVolume),
		})
	}
	if p.DaysSincePrior < 0 || p.DaysSincePrior > limits.MaxDays {
		errs = append(errs, FieldError{
			Field:   "days",
			Message: fmt.Sprintf("must be in [0, %d]", limits.MaxDays),
		})
	}
	if p.Dilution < limits.MinDilution || p.Dilution > limits.MaxDilution {
		errs = append(errs, FieldError{
			Field:   "dilution",
			Message: fmt.Sprintf("must be in [%v, %v]", limits.MinDilution, limits.MaxDilution),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
