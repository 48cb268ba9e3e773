package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkcells/checkcells/internal/capture"
	"github.com/checkcells/checkcells/internal/media"
	"github.com/checkcells/checkcells/internal/records"
	"github.com/checkcells/checkcells/internal/storage"
	"github.com/checkcells/checkcells/internal/types"
)

type stubStore struct {
	prefix string
	puts   int
	fail   error
	failAt int // fail on the n-th put, 0 = use fail for all
}

func (s *stubStore) Put(_ context.Context, sampleID string, takeIndex int, data []byte, _, ext string, _ map[string]string) (storage.StoredObject, error) {
	s.puts++
	if s.fail != nil && (s.failAt == 0 || s.puts == s.failAt) {
		return storage.StoredObject{}, s.fail
	}
	key := storage.ObjectKey(sampleID, takeIndex, ext, time.UnixMilli(1700000000000))
	return storage.StoredObject{
		Key:       key,
		URL:       s.prefix + "/" + key,
		SizeBytes: int64(len(data)),
	}, nil
}

type stubExtractor struct{ frames int }

func (s stubExtractor) Extract(_ context.Context, _ []byte, _ string, _ float64, _ int, maxFrames int) ([]media.Frame, error) {
	n := s.frames
	if n > maxFrames {
		n = maxFrames
	}
	frames := make([]media.Frame, n)
	for i := range frames {
		frames[i] = media.Frame{OffsetMs: int64(i) * 500, Data: []byte{byte(i)}}
	}
	return frames, nil
}

type stubAPI struct {
	calls   int
	fail    error
	created records.TestRecord
}

func (a *stubAPI) CreateTest(_ context.Context, record records.TestRecord) (records.TestRecord, error) {
	a.calls++
	if a.fail != nil {
		return records.TestRecord{}, a.fail
	}
	a.created = record
	record.ID = "7"
	return record, nil
}

func testSampler() *media.Sampler {
	return media.NewSampler(stubExtractor{frames: 10}, 2, 40, 15*time.Second)
}

func testTakes(n int) []capture.Take {
	takes := make([]capture.Take, n)
	for i := range takes {
		takes[i] = capture.Take{
			Index:    i + 1,
			Media:    []byte("media"),
			MimeType: "video/webm",
			Duration: 8 * time.Second,
		}
	}
	return takes
}

func testParams() capture.TestParams {
	return capture.TestParams{
		Operator:       "R. Okafor",
		SampleID:       "TEST-000042",
		Volume:         3.5,
		DaysSincePrior: 3,
		Dilution:       10,
	}
}

func TestUploadTakeRemote(t *testing.T) {
	remote := &stubStore{prefix: "https://bucket.s3"}
	local := &stubStore{prefix: "http://localhost:3001/uploads"}
	u := NewUploader(remote, local, testSampler())

	result, err := u.UploadTake(context.Background(), "TEST-000042", "R. Okafor", testTakes(1)[0])
	require.NoError(t, err)

	assert.Equal(t, types.StorageRemote, result.Storage)
	assert.Contains(t, result.URL, "videos/TEST-000042/recording_1_")
	assert.Nil(t, result.Compact)
	assert.Equal(t, 1, remote.puts)
	assert.Equal(t, 0, local.puts)
}

func TestUploadTakeWithoutRemoteDegrades(t *testing.T) {
	local := &stubStore{prefix: "http://localhost:3001/uploads"}
	u := NewUploader(nil, local, testSampler())

	result, err := u.UploadTake(context.Background(), "TEST-000042", "R. Okafor", testTakes(1)[0])
	require.NoError(t, err)

	assert.Equal(t, types.StorageLocal, result.Storage)
	require.NotNil(t, result.Compact)
	assert.Equal(t, 2.0, result.Compact.SampleFPS)
	assert.LessOrEqual(t, len(result.Compact.Frames), 30)
	assert.Equal(t, 1, local.puts)
}

func TestUploadTakeRemoteFailureFallsBack(t *testing.T) {
	remote := &stubStore{fail: errors.New("connection refused")}
	local := &stubStore{prefix: "http://localhost:3001/uploads"}
	u := NewUploader(remote, local, testSampler())

	result, err := u.UploadTake(context.Background(), "TEST-000042", "R. Okafor", testTakes(1)[0])
	require.NoError(t, err, "transient storage failure must not fail the take")

	assert.Equal(t, types.StorageLocal, result.Storage)
	require.NotNil(t, result.Compact)
	assert.Equal(t, 1, remote.puts)
	assert.Equal(t, 1, local.puts)
}

func TestSubmitHappyPath(t *testing.T) {
	remote := &stubStore{prefix: "https://bucket.s3"}
	local := &stubStore{prefix: "http://localhost:3001/uploads"}
	api := &stubAPI{}

	var progress [][2]int
	s := NewSubmitter(NewUploader(remote, local, testSampler()), api, capture.DefaultParamLimits(),
		WithProgress(func(done, total int) { progress = append(progress, [2]int{done, total}) }),
		WithSubmitClock(func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }),
	)

	created, err := s.Submit(context.Background(), testParams(), testTakes(3))
	require.NoError(t, err)

	assert.Equal(t, "7", created.ID)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	assert.Equal(t, "R. Okafor", api.created.Name)
	assert.Equal(t, "TEST-000042", api.created.TestID)
	assert.Equal(t, "2026-08-30", api.created.DateOfTest)
	assert.Equal(t, types.RecordAnalyzing, api.created.Status)
	assert.Len(t, api.created.VideoURLs, 3)
	require.Len(t, api.created.Takes, 3)
	assert.Equal(t, "remote", api.created.Takes[0].Storage)
	assert.Equal(t, 1, api.created.Takes[0].RecordingNumber)
}

func TestSubmitStatusOverride(t *testing.T) {
	api := &stubAPI{}
	s := NewSubmitter(NewUploader(nil, &stubStore{}, testSampler()), api, capture.DefaultParamLimits(),
		WithStatus(types.RecordCompleted),
	)

	_, err := s.Submit(context.Background(), testParams(), testTakes(2))
	require.NoError(t, err)
	assert.Equal(t, types.RecordCompleted, api.created.Status)
}

func TestSubmitRejectsInvalidParams(t *testing.T) {
	api := &stubAPI{}
	s := NewSubmitter(NewUploader(nil, &stubStore{}, testSampler()), api, capture.DefaultParamLimits())

	params := testParams()
	params.Operator = ""
	_, err := s.Submit(context.Background(), params, testTakes(2))
	require.Error(t, err)

	var verr capture.ValidationErrors
	assert.ErrorAs(t, err, &verr)
	assert.Zero(t, api.calls)
}

func TestSubmitNoTakes(t *testing.T) {
	s := NewSubmitter(NewUploader(nil, &stubStore{}, testSampler()), &stubAPI{}, capture.DefaultParamLimits())

	_, err := s.Submit(context.Background(), testParams(), nil)
	assert.ErrorIs(t, err, ErrNoTakes)
}

func TestSubmitHaltsOnUploadFailureAndPreserves(t *testing.T) {
	local := &stubStore{prefix: "http://localhost:3001/uploads", fail: errors.New("disk full"), failAt: 2}
	api := &stubAPI{}
	s := NewSubmitter(NewUploader(nil, local, testSampler()), api, capture.DefaultParamLimits())

	_, err := s.Submit(context.Background(), testParams(), testTakes(3))
	require.Error(t, err)
	assert.Zero(t, api.calls, "record API must not be called after an upload failure")
	assert.Equal(t, 1, s.Uploaded())

	// Retry: take 1 is cached, only takes 2 and 3 hit storage again.
	local.fail = nil
	_, err = s.Submit(context.Background(), testParams(), testTakes(3))
	require.NoError(t, err)
	assert.Equal(t, 4, local.puts)
	assert.Equal(t, 1, api.calls)
}

func TestSubmitPreservesUploadsOnRecordFailure(t *testing.T) {
	local := &stubStore{prefix: "http://localhost:3001/uploads"}
	api := &stubAPI{fail: errors.New("upstream down")}
	s := NewSubmitter(NewUploader(nil, local, testSampler()), api, capture.DefaultParamLimits())

	_, err := s.Submit(context.Background(), testParams(), testTakes(2))
	require.Error(t, err)
	assert.Equal(t, 2, s.Uploaded())
	assert.Equal(t, 2, local.puts)

	// Retry re-POSTs the record without re-uploading any take.
	api.fail = nil
	_, err = s.Submit(context.Background(), testParams(), testTakes(2))
	require.NoError(t, err)
	assert.Equal(t, 2, local.puts)
	assert.Equal(t, 2, api.calls)
}
