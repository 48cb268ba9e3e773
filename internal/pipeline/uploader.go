// Package pipeline moves accepted takes into storage and submits the
// finished test to the record API.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/checkcells/checkcells/internal/capture"
	"github.com/checkcells/checkcells/internal/log"
	"github.com/checkcells/checkcells/internal/media"
	"github.com/checkcells/checkcells/internal/metrics"
	"github.com/checkcells/checkcells/internal/storage"
	"github.com/checkcells/checkcells/internal/types"
)

// ObjectStore is the remote storage surface the uploader needs.
type ObjectStore interface {
	Put(ctx context.Context, sampleID string, takeIndex int, data []byte, mimeType, ext string, metadata map[string]string) (storage.StoredObject, error)
}

// LocalStore persists degraded payloads when remote storage is
// unavailable.
type LocalStore interface {
	Put(ctx context.Context, sampleID string, takeIndex int, data []byte, mimeType, ext string, metadata map[string]string) (storage.StoredObject, error)
}

// Result is the outcome of uploading one take.
type Result struct {
	TakeIndex       int
	Storage         types.StorageLocation
	URL             string
	SizeBytes       int64
	DurationSeconds float64
	// Compact is set on the local path only.
	Compact *media.CompactClip
}

// Uploader resolves a storage target per take: remote when an object
// store is configured, otherwise a degraded compact payload kept
// locally. Remote failures are recovered by the same degraded path and
// never surface to the operator.
type Uploader struct {
	remote  ObjectStore // nil when object storage is not configured
	local   LocalStore
	sampler *media.Sampler
}

// NewUploader builds an uploader. remote may be nil.
func NewUploader(remote ObjectStore, local LocalStore, sampler *media.Sampler) *Uploader {
	return &Uploader{remote: remote, local: local, sampler: sampler}
}

// UploadTake stores one take and reports where it ended up.
func (u *Uploader) UploadTake(ctx context.Context, sampleID, operator string, take capture.Take) (Result, error) {
	logger := log.WithContext(ctx, log.WithComponent("uploader"))

	if u.remote != nil {
		result, err := u.uploadRemote(ctx, sampleID, operator, take)
		if err == nil {
			metrics.IncTakeUpload(string(types.StorageRemote), "success")
			return result, nil
		}
		// Transient storage trouble must not fail the take.
		metrics.IncTakeUpload(string(types.StorageRemote), "failure")
		metrics.IncStorageFallback()
		logger.Warn().Err(err).
			Str(log.FieldSampleID, sampleID).
			Int(log.FieldTake, take.Index).
			Msg("remote upload failed, degrading to local storage")
	}

	result, err := u.uploadLocal(ctx, sampleID, take)
	if err != nil {
		metrics.IncTakeUpload(string(types.StorageLocal), "failure")
		return Result{}, err
	}
	metrics.IncTakeUpload(string(types.StorageLocal), "success")
	return result, nil
}

func (u *Uploader) uploadRemote(ctx context.Context, sampleID, operator string, take capture.Take) (Result, error) {
	obj, err := u.remote.Put(ctx, sampleID, take.Index, take.Media, take.MimeType,
		media.ExtensionForMime(take.MimeType), map[string]string{
			"testId":          sampleID,
			"recordingNumber": strconv.Itoa(take.Index),
			"uploadedBy":      operator,
			"uploadDate":      take.AcceptedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	if err != nil {
		return Result{}, err
	}
	return Result{
		TakeIndex:       take.Index,
		Storage:         types.StorageRemote,
		URL:             obj.URL,
		SizeBytes:       obj.SizeBytes,
		DurationSeconds: take.Duration.Seconds(),
	}, nil
}

func (u *Uploader) uploadLocal(ctx context.Context, sampleID string, take capture.Take) (Result, error) {
	clip, err := u.sampler.Compact(ctx, take.Media, take.MimeType, take.Duration)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: degrade take %d: %w", take.Index, err)
	}

	payload, err := json.Marshal(clip)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: encode compact clip: %w", err)
	}

	obj, err := u.local.Put(ctx, sampleID, take.Index, payload, "application/json", ".json", nil)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: store compact clip: %w", err)
	}

	return Result{
		TakeIndex:       take.Index,
		Storage:         types.StorageLocal,
		URL:             obj.URL,
		SizeBytes:       obj.SizeBytes,
		DurationSeconds: take.Duration.Seconds(),
		Compact:         &clip,
	}, nil
}
