package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/checkcells/checkcells/internal/capture"
	"github.com/checkcells/checkcells/internal/log"
	"github.com/checkcells/checkcells/internal/metrics"
	"github.com/checkcells/checkcells/internal/records"
	"github.com/checkcells/checkcells/internal/types"
)

// ErrNoTakes is returned when a submission is attempted without any
// accepted takes.
var ErrNoTakes = errors.New("pipeline: no takes to submit")

// RecordAPI is the record-service surface the submitter needs.
type RecordAPI interface {
	CreateTest(ctx context.Context, record records.TestRecord) (records.TestRecord, error)
}

// Progress is invoked after each take finishes uploading, as (done, total).
type Progress func(done, total int)

// DefaultTestType labels records created by this service.
const DefaultTestType = "All parameters"

// Submitter turns a finished capture workflow into a registered test
// record: upload every take strictly in order, then POST the record
// once. Any failure halts the submission and preserves already-uploaded
// takes, so a retry never re-uploads finished work.
type Submitter struct {
	uploader *Uploader
	api      RecordAPI
	limits   capture.ParamLimits
	progress Progress
	status   types.RecordStatus
	now      func() time.Time

	uploaded map[int]Result
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithProgress installs a per-take progress callback.
func WithProgress(p Progress) SubmitterOption {
	return func(s *Submitter) { s.progress = p }
}

// WithSubmitClock overrides the submission timestamp source.
func WithSubmitClock(now func() time.Time) SubmitterOption {
	return func(s *Submitter) { s.now = now }
}

// WithStatus overrides the initial record status. New records start as
// Analyzing unless the caller says otherwise.
func WithStatus(status types.RecordStatus) SubmitterOption {
	return func(s *Submitter) { s.status = status }
}

// NewSubmitter builds a submitter. One submitter serves one test; its
// upload cache is keyed by take index.
func NewSubmitter(uploader *Uploader, api RecordAPI, limits capture.ParamLimits, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		uploader: uploader,
		api:      api,
		limits:   limits,
		status:   types.RecordAnalyzing,
		now:      time.Now,
		uploaded: make(map[int]Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Uploaded reports how many takes have already been stored.
func (s *Submitter) Uploaded() int { return len(s.uploaded) }

// Submit uploads all takes and registers the test. On error the
// submitter stays usable: call Submit again after the operator decides
// to retry.
func (s *Submitter) Submit(ctx context.Context, params capture.TestParams, takes []capture.Take) (records.TestRecord, error) {
	logger := log.WithContext(ctx, log.WithComponent("submitter"))

	if len(takes) == 0 {
		metrics.IncSubmission("invalid")
		return records.TestRecord{}, ErrNoTakes
	}
	if err := params.Validate(s.limits); err != nil {
		metrics.IncSubmission("invalid")
		return records.TestRecord{}, err
	}

	total := len(takes)
	results := make([]Result, 0, total)
	for i, take := range takes {
		result, ok := s.uploaded[take.Index]
		if !ok {
			var err error
			result, err = s.uploader.UploadTake(ctx, params.SampleID, params.Operator, take)
			if err != nil {
				metrics.IncSubmission("upload_failed")
				logger.Error().Err(err).
					Str(log.FieldSampleID, params.SampleID).
					Int(log.FieldTake, take.Index).
					Msg("take upload failed, submission halted")
				return records.TestRecord{}, fmt.Errorf("pipeline: upload take %d of %d: %w", i+1, total, err)
			}
			s.uploaded[take.Index] = result
			metrics.ObserveTakeDuration(result.DurationSeconds)
		}
		results = append(results, result)
		if s.progress != nil {
			s.progress(i+1, total)
		}
	}

	record := s.assemble(params, results)
	created, err := s.api.CreateTest(ctx, record)
	if err != nil {
		metrics.IncSubmission("record_failed")
		logger.Error().Err(err).
			Str(log.FieldSampleID, params.SampleID).
			Int(log.FieldTakes, total).
			Msg("record submission failed, uploads preserved for retry")
		return records.TestRecord{}, err
	}

	metrics.IncSubmission("success")
	metrics.ObserveTakesPerTest(total)
	logger.Info().
		Str(log.FieldSampleID, params.SampleID).
		Int(log.FieldTakes, total).
		Msg("test record submitted")
	return created, nil
}

func (s *Submitter) assemble(params capture.TestParams, results []Result) records.TestRecord {
	urls := make([]string, 0, len(results))
	takes := make([]records.TakeUpload, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
		takes = append(takes, records.TakeUpload{
			RecordingNumber: r.TakeIndex,
			Storage:         string(r.Storage),
			URL:             r.URL,
			DurationSeconds: r.DurationSeconds,
			Compact:         r.Compact,
		})
	}

	return records.TestRecord{
		Name:       params.Operator,
		TestID:     params.SampleID,
		Volume:     params.Volume,
		Days:       params.DaysSincePrior,
		Dilution:   params.Dilution,
		DateOfTest: s.now().UTC().Format("2006-01-02"),
		TestType:   DefaultTestType,
		Status:     s.status,
		VideoURLs:  urls,
		Takes:      takes,
	}
}
