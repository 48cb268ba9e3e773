package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/checkcells/checkcells/internal/config"
	"github.com/checkcells/checkcells/internal/log"
)

// Workflow errors.
var (
	ErrWorkflowFinished = errors.New("capture: workflow already finished")
	ErrTakeInProgress   = errors.New("capture: a take is already in progress")
	ErrNoActiveTake     = errors.New("capture: no take in progress")
	ErrTakeCapReached   = errors.New("capture: take cap reached")
	ErrCannotFinish     = errors.New("capture: finish conditions not met")
	ErrNoTakes          = errors.New("capture: no accepted takes")
)

// Workflow drives one test-taking interaction: it owns the camera stream
// for its whole lifetime, runs a sequence of recording sessions, and hands
// the accepted takes to finalization. A Workflow is not safe for concurrent
// use; it belongs to a single operator interaction.
type Workflow struct {
	id      string
	params  TestParams
	policy  config.CaptureConfig
	device  *DeviceManager
	agg     *Aggregator
	current *Session
	logger  zerolog.Logger

	sessionOpts []SessionOption
	finished    bool
}

// NewWorkflow builds a workflow for the given sample and policy.
func NewWorkflow(params TestParams, policy config.CaptureConfig, opener DeviceOpener, sessionOpts ...SessionOption) *Workflow {
	id := uuid.New().String()
	return &Workflow{
		id:          id,
		params:      params,
		policy:      policy,
		device:      NewDeviceManager(opener),
		agg:         NewAggregator(policy),
		logger:      log.WithComponent("workflow").With().Str(log.FieldWorkflowID, id).Str(log.FieldSampleID, params.SampleID).Logger(),
		sessionOpts: sessionOpts,
	}
}

// ID returns the workflow's unique identifier.
func (w *Workflow) ID() string {
	return w.id
}

// Params returns the sample metadata the workflow was created with.
func (w *Workflow) Params() TestParams {
	return w.params
}

// Begin acquires the camera stream. A device failure aborts the workflow
// before any recording state is reachable; the caller returns the operator
// to the previous screen.
func (w *Workflow) Begin(ctx context.Context) error {
	if w.finished {
		return ErrWorkflowFinished
	}
	if err := w.device.Acquire(ctx); err != nil {
		w.finished = true
		w.logger.Error().Err(err).Str(log.FieldEvent, "workflow.device_denied").Msg("workflow aborted at entry")
		return err
	}
	w.logger.Info().Str(log.FieldEvent, "workflow.started").Msg("capture workflow started")
	return nil
}

// StartTake creates and starts a recording session for the next take.
func (w *Workflow) StartTake() (*Session, error) {
	switch {
	case w.finished:
		return nil, ErrWorkflowFinished
	case !w.device.Held():
		return nil, ErrDeviceReleased
	case w.current != nil && !w.current.State().IsTerminal():
		return nil, ErrTakeInProgress
	case w.agg.AtCap():
		return nil, ErrTakeCapReached
	}

	s := NewSession(w.policy.MaxClipDuration, w.sessionOpts...)
	if err := s.Start(); err != nil {
		return nil, err
	}
	w.current = s
	w.logger.Info().
		Str(log.FieldEvent, "take.started").
		Int(log.FieldTake, w.agg.NextIndex()).
		Msg("recording started")
	return s, nil
}

// AcceptTake accepts the pending take, feeds it to the aggregator and
// returns it together with the stopping decision. A forced finalize
// releases the camera immediately.
func (w *Workflow) AcceptTake() (Take, Decision, error) {
	if w.current == nil {
		return Take{}, "", ErrNoActiveTake
	}
	take, err := w.current.Accept(w.agg.NextIndex())
	if err != nil {
		return Take{}, "", err
	}
	decision, err := w.agg.OnTakeAccepted(take)
	if err != nil {
		return Take{}, "", err
	}
	w.current = nil

	if decision == DecisionForceFinalize {
		if err := w.device.Release(); err != nil {
			w.logger.Warn().Err(err).Msg("device release after forced finalize")
		}
	}
	return take, decision, nil
}

// RejectTake discards the pending take. The aggregate is untouched and the
// operator may immediately start a new take.
func (w *Workflow) RejectTake() error {
	if w.current == nil {
		return ErrNoActiveTake
	}
	if err := w.current.Reject(); err != nil {
		return err
	}
	w.logger.Info().
		Str(log.FieldEvent, "take.rejected").
		Int(log.FieldTake, w.agg.NextIndex()).
		Msg("take rejected")
	w.current = nil
	return nil
}

// Decision returns the current stopping verdict without mutating anything.
func (w *Workflow) Decision() Decision {
	if w.agg.AtCap() {
		return DecisionForceFinalize
	}
	if w.agg.CanFinish() {
		return DecisionOfferFinish
	}
	return DecisionPromptAnother
}

// Takes returns the accepted takes so far, in recording order.
func (w *Workflow) Takes() []Take {
	return w.agg.Takes()
}

// TotalDuration returns the cumulative accepted duration.
func (w *Workflow) TotalDuration() float64 {
	return w.agg.TotalDuration().Seconds()
}

// Finalize validates the sample params and finish conditions, releases the
// camera and returns the takes for upload. The workflow is finished
// afterwards regardless of what the upload pipeline does with the takes.
func (w *Workflow) Finalize(limits ParamLimits) ([]Take, error) {
	if w.finished {
		return nil, ErrWorkflowFinished
	}
	if w.agg.Count() == 0 {
		return nil, ErrNoTakes
	}
	if !w.agg.CanFinish() {
		return nil, fmt.Errorf("%w: %d takes, %.1fs total", ErrCannotFinish, w.agg.Count(), w.agg.TotalDuration().Seconds())
	}
	if err := w.params.Validate(limits); err != nil {
		return nil, err
	}

	w.finished = true
	if err := w.device.Release(); err != nil {
		w.logger.Warn().Err(err).Msg("device release on finalize")
	}
	w.logger.Info().
		Str(log.FieldEvent, "workflow.finalized").
		Int(log.FieldTakes, w.agg.Count()).
		Float64(log.FieldDuration, w.agg.TotalDuration().Seconds()).
		Msg("workflow finalized")
	return w.agg.Takes(), nil
}

// Cancel releases the camera and discards all in-memory takes. No upload
// happens on cancel. Safe to call at any point before Finalize.
func (w *Workflow) Cancel() error {
	if w.finished {
		return nil
	}
	w.finished = true
	w.current = nil
	err := w.device.Release()
	w.logger.Info().
		Str(log.FieldEvent, "workflow.cancelled").
		Int(log.FieldTakes, w.agg.Count()).
		Msg("workflow cancelled, takes discarded")
	return err
}
