// Package media synthesizes the degraded fallback representation of a
// recorded clip: a bounded, low-frame-rate still-image sequence that is
// small enough to travel through the record API when full-fidelity object
// storage is unavailable.
package media

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Frame is one sampled still image.
type Frame struct {
	// OffsetMs is the frame's position in the source clip.
	OffsetMs int64 `json:"offsetMs"`
	// Data is the encoded image; JSON-marshals to base64.
	Data []byte `json:"data"`
}

// CompactClip is the serializable degraded representation of one take.
type CompactClip struct {
	SampleFPS       float64 `json:"sampleFps"`
	Quality         int     `json:"quality"`
	DurationSeconds float64 `json:"durationSeconds"`
	FrameMimeType   string  `json:"frameMimeType"`
	Frames          []Frame `json:"frames"`
}

// FrameExtractor decodes a media blob into still frames sampled at the
// given rate and quality, returning at most maxFrames frames.
type FrameExtractor interface {
	Extract(ctx context.Context, media []byte, mimeType string, fps float64, quality, maxFrames int) ([]Frame, error)
}

// MaxFrames is the frame-count ceiling for a compact clip:
// ceil(sampleFPS × maxClipDuration).
func MaxFrames(sampleFPS float64, maxClip time.Duration) int {
	return int(math.Ceil(sampleFPS * maxClip.Seconds()))
}

// Sampler builds compact clips through a FrameExtractor.
type Sampler struct {
	extractor FrameExtractor
	fps       float64
	quality   int
	maxFrames int
}

// NewSampler creates a sampler with the given rate, per-frame quality and
// the hard per-take recording cap that bounds the frame count.
func NewSampler(extractor FrameExtractor, fps float64, quality int, maxClip time.Duration) *Sampler {
	return &Sampler{
		extractor: extractor,
		fps:       fps,
		quality:   quality,
		maxFrames: MaxFrames(fps, maxClip),
	}
}

// Compact samples the media blob into its degraded representation.
func (s *Sampler) Compact(ctx context.Context, media []byte, mimeType string, duration time.Duration) (CompactClip, error) {
	frames, err := s.extractor.Extract(ctx, media, mimeType, s.fps, s.quality, s.maxFrames)
	if err != nil {
		return CompactClip{}, fmt.Errorf("media: sample frames: %w", err)
	}
	if len(frames) > s.maxFrames {
		frames = frames[:s.maxFrames]
	}
	return CompactClip{
		SampleFPS:       s.fps,
		Quality:         s.quality,
		DurationSeconds: duration.Seconds(),
		FrameMimeType:   "image/jpeg",
		Frames:          frames,
	}, nil
}
