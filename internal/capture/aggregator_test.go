package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkcells/checkcells/internal/config"
)

func testPolicy() config.CaptureConfig {
	return config.CaptureConfig{
		MaxTakes:         5,
		MinTakes:         2,
		MinTotalDuration: 15 * time.Second,
		MaxClipDuration:  15 * time.Second,
		SampleFPS:        2,
		FrameQuality:     40,
	}
}

func acceptedTake(index int, d time.Duration) Take {
	return Take{
		Index:      index,
		Media:      []byte("media"),
		MimeType:   "video/webm",
		Duration:   d,
		AcceptedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestAggregator_FirstTakeAlwaysPrompts(t *testing.T) {
	agg := NewAggregator(testPolicy())

	// Even a take already exceeding the minimum duration must not offer
	// finish while below the minimum take count.
	decision, err := agg.OnTakeAccepted(acceptedTake(1, 20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, DecisionPromptAnother, decision)
	assert.False(t, agg.CanFinish())
}

func TestAggregator_DurationBelowMinimumWithholdsFinish(t *testing.T) {
	agg := NewAggregator(testPolicy())

	_, err := agg.OnTakeAccepted(acceptedTake(1, 5*time.Second))
	require.NoError(t, err)

	decision, err := agg.OnTakeAccepted(acceptedTake(2, 5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, DecisionPromptAnother, decision)
	assert.Equal(t, 10*time.Second, agg.TotalDuration())
	assert.False(t, agg.CanFinish())
}

func TestAggregator_OffersFinishWhenBothConditionsMet(t *testing.T) {
	agg := NewAggregator(testPolicy())

	decision, err := agg.OnTakeAccepted(acceptedTake(1, 8*time.Second))
	require.NoError(t, err)
	assert.Equal(t, DecisionPromptAnother, decision)

	decision, err = agg.OnTakeAccepted(acceptedTake(2, 7*time.Second))
	require.NoError(t, err)
	assert.Equal(t, DecisionOfferFinish, decision)
	assert.Equal(t, 15*time.Second, agg.TotalDuration())
	assert.True(t, agg.CanFinish())
}

func TestAggregator_CapForcesFinalize(t *testing.T) {
	agg := NewAggregator(testPolicy())

	// Five one-second takes never reach the duration minimum; the cap
	// still forces finalization.
	var decision Decision
	var err error
	for i := 1; i <= 5; i++ {
		decision, err = agg.OnTakeAccepted(acceptedTake(i, time.Second))
		require.NoError(t, err)
	}
	assert.Equal(t, DecisionForceFinalize, decision)
	assert.True(t, agg.AtCap())
	assert.True(t, agg.CanFinish())

	_, err = agg.OnTakeAccepted(acceptedTake(6, time.Second))
	assert.Error(t, err)
	assert.Equal(t, 5, agg.Count())
}

func TestAggregator_TotalDurationInvariant(t *testing.T) {
	agg := NewAggregator(testPolicy())

	durations := []time.Duration{3 * time.Second, 7 * time.Second, 2 * time.Second}
	var want time.Duration
	for i, d := range durations {
		_, err := agg.OnTakeAccepted(acceptedTake(i+1, d))
		require.NoError(t, err)
		want += d

		var sum time.Duration
		for _, take := range agg.Takes() {
			sum += take.Duration
		}
		assert.Equal(t, want, agg.TotalDuration())
		assert.Equal(t, sum, agg.TotalDuration())
	}
}

func TestAggregator_RejectsOutOfOrderIndex(t *testing.T) {
	agg := NewAggregator(testPolicy())

	_, err := agg.OnTakeAccepted(acceptedTake(2, time.Second))
	assert.Error(t, err)
	assert.Equal(t, 0, agg.Count())
	assert.Equal(t, time.Duration(0), agg.TotalDuration())
}

func TestAggregator_TakesReturnsCopy(t *testing.T) {
	agg := NewAggregator(testPolicy())
	_, err := agg.OnTakeAccepted(acceptedTake(1, time.Second))
	require.NoError(t, err)

	takes := agg.Takes()
	takes[0].Index = 99
	assert.Equal(t, 1, agg.Takes()[0].Index)
}

func TestAggregator_MinTakesOne(t *testing.T) {
	policy := testPolicy()
	policy.MinTakes = 1
	agg := NewAggregator(policy)

	decision, err := agg.OnTakeAccepted(acceptedTake(1, 20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, DecisionOfferFinish, decision)
	assert.True(t, agg.CanFinish())
}
