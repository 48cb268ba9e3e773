package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/checkcells/checkcells/internal/log"
)

// FFmpegExtractor samples frames by shelling out to ffmpeg. The source
// blob is staged in a temp directory because ffmpeg needs a seekable
// input for most container formats.
type FFmpegExtractor struct {
	BinPath string
	Timeout time.Duration
}

// NewFFmpegExtractor creates an extractor using the given ffmpeg binary,
// or "ffmpeg" from PATH if empty.
func NewFFmpegExtractor(binPath string, timeout time.Duration) *FFmpegExtractor {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFmpegExtractor{BinPath: binPath, Timeout: timeout}
}

var mimeExtensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/ogg":        ".ogv",
	"video/quicktime":  ".mov",
	"video/x-msvideo":  ".avi",
	"video/x-matroska": ".mkv",
}

// ExtensionForMime maps an allowed video MIME type to a file extension,
// defaulting to .mp4 for unrecognized types.
func ExtensionForMime(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	return ".mp4"
}

// Extract runs ffmpeg over the staged blob and returns the sampled
// frames in playback order.
func (e *FFmpegExtractor) Extract(ctx context.Context, media []byte, mimeType string, fps float64, quality, maxFrames int) ([]Frame, error) {
	logger := log.WithContext(ctx, log.WithComponent("extractor"))

	dir, err := os.MkdirTemp("", "compact-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "source"+ExtensionForMime(mimeType))
	// #nosec G306 -- transient file, removed with the work dir
	if err := os.WriteFile(input, media, 0644); err != nil {
		return nil, fmt.Errorf("stage source: %w", err)
	}

	// ffmpeg's -q:v scale runs 2 (best) to 31; map the 0-100 quality
	// knob onto it so higher configured quality means better frames.
	qscale := 2 + (100-clampQuality(quality))*29/100

	pattern := filepath.Join(dir, "frame_%04d.jpg")
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vf", fmt.Sprintf("fps=%g", fps),
		"-frames:v", fmt.Sprintf("%d", maxFrames),
		"-q:v", fmt.Sprintf("%d", qscale),
		pattern,
	}

	runCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.BinPath, args...) // #nosec G204
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug().Str("command", cmd.String()).Msg("sampling frames")
	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(stderr.String())
		logger.Error().Err(err).Str("stderr", tail).Msg("ffmpeg frame extraction failed")
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, tail)
	}

	return collectFrames(dir, fps)
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}

func collectFrames(dir string, fps float64) ([]Frame, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(matches)

	interval := time.Duration(float64(time.Second) / fps)
	frames := make([]Frame, 0, len(matches))
	for i, path := range matches {
		data, err := os.ReadFile(path) // #nosec G304 -- paths come from our own temp dir
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		frames = append(frames, Frame{
			OffsetMs: int64(i) * interval.Milliseconds(),
			Data:     data,
		})
	}
	return frames, nil
}
