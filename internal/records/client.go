// Package records talks to the upstream test-record API where finished
// tests are registered and their comments maintained.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/checkcells/checkcells/internal/log"
	"github.com/checkcells/checkcells/internal/media"
	"github.com/checkcells/checkcells/internal/types"
)

// TestRecord is the wire representation of one test. Field names match
// the upstream API, including its historical "delution" spelling.
type TestRecord struct {
	ID         string             `json:"id,omitempty"`
	Name       string             `json:"name"`
	TestID     string             `json:"testId"`
	Volume     float64            `json:"volume"`
	Days       int                `json:"days"`
	Dilution   float64            `json:"delution"`
	DateOfTest string             `json:"dateOfTest"`
	TestType   string             `json:"testType"`
	Status     types.RecordStatus `json:"status"`
	Comments   string             `json:"comments,omitempty"`
	VideoURLs  []string           `json:"videoUrl"`
	Takes      []TakeUpload       `json:"takes,omitempty"`
}

// TakeUpload describes one uploaded take inside a record. Remote takes
// carry only a URL; degraded takes embed the compact clip so the record
// stays viewable without object storage.
type TakeUpload struct {
	RecordingNumber int                `json:"recordingNumber"`
	Storage         string             `json:"storage"`
	URL             string             `json:"url,omitempty"`
	DurationSeconds float64            `json:"durationSeconds"`
	Compact         *media.CompactClip `json:"compact,omitempty"`
}

// Client is an HTTP client for the record API.
type Client struct {
	base string
	http *http.Client
}

// New builds a client against the given API base URL.
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// NumericID maps a display test ID to the upstream's numeric path ID:
// "TEST-000042" and "TST-042" both become "42". A prefixed ID whose
// digits are all zeros falls back to "1"; unprefixed IDs pass through
// unchanged.
func NumericID(testID string) string {
	id := testID
	switch {
	case strings.HasPrefix(id, "TEST-"):
		id = strings.TrimPrefix(id, "TEST-")
	case strings.HasPrefix(id, "TST-"):
		id = strings.TrimPrefix(id, "TST-")
	default:
		return id
	}
	id = strings.TrimLeft(id, "0")
	if id == "" {
		return "1"
	}
	return id
}

// CreateTest registers a finished test and returns the stored record.
func (c *Client) CreateTest(ctx context.Context, record TestRecord) (TestRecord, error) {
	const op = "create test"
	logger := log.WithContext(ctx, log.WithComponent("records"))

	if record.VideoURLs == nil {
		record.VideoURLs = []string{}
	}
	body, err := json.Marshal(record)
	if err != nil {
		return TestRecord{}, &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/parameters", bytes.NewReader(body))
	if err != nil {
		return TestRecord{}, &APIError{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var created TestRecord
	if err := c.do(req, op, &created); err != nil {
		return TestRecord{}, err
	}
	logger.Info().
		Str(log.FieldSampleID, created.TestID).
		Int("video_urls", len(created.VideoURLs)).
		Msg("test record created")
	return created, nil
}

// ListTests fetches all registered tests.
func (c *Client) ListTests(ctx context.Context) ([]TestRecord, error) {
	const op = "list tests"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/parameters", nil)
	if err != nil {
		return nil, &APIError{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	var out []TestRecord
	if err := c.do(req, op, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTest fetches one test by its display ID.
func (c *Client) GetTest(ctx context.Context, testID string) (TestRecord, error) {
	const op = "get test"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/parameters/"+NumericID(testID), nil)
	if err != nil {
		return TestRecord{}, &APIError{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	var out TestRecord
	if err := c.do(req, op, &out); err != nil {
		return TestRecord{}, err
	}
	return out, nil
}

// GetComments returns a test's comments. A test that does not exist yet
// yields an empty string, not an error.
func (c *Client) GetComments(ctx context.Context, testID string) (string, error) {
	record, err := c.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return record.Comments, nil
}

// UpdateComments replaces a test's comments.
func (c *Client) UpdateComments(ctx context.Context, testID, comments string) error {
	const op = "update comments"
	logger := log.WithContext(ctx, log.WithComponent("records"))

	body, err := json.Marshal(map[string]string{"comments": comments})
	if err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/parameters/"+NumericID(testID), bytes.NewReader(body))
	if err != nil {
		return &APIError{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, op, nil); err != nil {
		return err
	}
	logger.Debug().Str(log.FieldSampleID, testID).Msg("test comments updated")
	return nil
}

// do executes the request, classifies failures and decodes the response
// body into out when non-nil.
func (c *Client) do(req *http.Request, op string, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		sentinel := ErrUnavailable
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			sentinel = ErrTimeout
		}
		return &APIError{Sentinel: sentinel, Operation: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		apiErr := &APIError{
			Operation: op,
			Status:    res.StatusCode,
			Body:      strings.TrimSpace(string(body)),
		}
		switch {
		case res.StatusCode == http.StatusNotFound:
			apiErr.Sentinel = ErrNotFound
		case res.StatusCode >= 500:
			apiErr.Sentinel = ErrUpstreamError
		default:
			apiErr.Sentinel = ErrRequestRejected
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &APIError{
			Sentinel:  ErrBadResponse,
			Operation: op,
			Status:    res.StatusCode,
			Err:       fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}
