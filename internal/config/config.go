// Package config loads and validates the environment-driven configuration
// for the upload backend and the capture workflow.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Default limits mirror the original deployment: 500MB upload cap,
// five takes per test, 15 seconds of evidence minimum.
const (
	DefaultListenAddr     = ":3001"
	DefaultMaxUploadBytes = 500 * 1024 * 1024
	DefaultFrontendOrigin = "http://localhost:5173"
)

// S3Config holds object-storage credentials. Presence of bucket and both
// key halves gates whether the remote upload path is attempted at all.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 endpoint (tests, S3-compatible stores).
	Endpoint string
}

// Configured reports whether object storage can be used.
func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// CaptureConfig holds the take-aggregation policy and the degraded-clip
// sampling parameters.
type CaptureConfig struct {
	// MaxTakes caps the number of accepted takes per test.
	MaxTakes int
	// MinTakes is the number of accepted takes required before the finish
	// option is offered. The legacy behavior of always prompting after the
	// first take is MinTakes=2.
	MinTakes int
	// MinTotalDuration is the cumulative accepted-take duration required
	// before the finish option is offered.
	MinTotalDuration time.Duration
	// MaxClipDuration is the hard per-take recording cap.
	MaxClipDuration time.Duration
	// SampleFPS is the frame rate of the degraded fallback representation.
	SampleFPS float64
	// FrameQuality is the per-frame encode quality (1-100) of the fallback.
	FrameQuality int
}

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	LogLevel   string
	LogService string

	ListenAddr     string
	PublicBaseURL  string
	AllowedOrigins []string
	DataDir        string
	MaxUploadBytes int64

	MetricsEnabled bool
	MetricsAddr    string

	RateLimitEnabled bool
	RateLimitRPM     int

	ShutdownTimeout time.Duration

	RecordAPIBase string

	S3      S3Config
	Capture CaptureConfig
}

// Load builds the configuration from environment variables with defaults.
func Load() AppConfig {
	cfg := AppConfig{
		LogLevel:   ParseString("CHK_LOG_LEVEL", "info"),
		LogService: ParseString("CHK_LOG_SERVICE", "checkcells"),

		ListenAddr:     ParseString("CHK_LISTEN", DefaultListenAddr),
		AllowedOrigins: parseCommaSeparated(ParseString("CHK_ALLOWED_ORIGINS", ""), []string{DefaultFrontendOrigin}),
		DataDir:        ParseString("CHK_DATA", "uploads"),
		MaxUploadBytes: ParseInt64("CHK_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),

		MetricsEnabled: ParseBool("CHK_METRICS_ENABLED", false),
		MetricsAddr:    ParseString("CHK_METRICS_ADDR", ":9090"),

		RateLimitEnabled: ParseBool("CHK_RATELIMIT_ENABLED", true),
		RateLimitRPM:     ParseInt("CHK_RATELIMIT_RPM", 120),

		ShutdownTimeout: ParseDuration("CHK_SHUTDOWN_TIMEOUT", 10*time.Second),

		RecordAPIBase: ParseString("CHK_RECORD_API_BASE", ""),

		S3: S3Config{
			Region:          ParseString("CHK_AWS_REGION", "us-east-1"),
			Bucket:          ParseString("CHK_AWS_BUCKET_NAME", ""),
			AccessKeyID:     ParseString("CHK_AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: ParseString("CHK_AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        ParseString("CHK_AWS_ENDPOINT", ""),
		},

		Capture: CaptureConfig{
			MaxTakes:         ParseInt("CHK_MAX_TAKES", 5),
			MinTakes:         ParseInt("CHK_MIN_TAKES", 2),
			MinTotalDuration: ParseDuration("CHK_MIN_TOTAL_DURATION", 15*time.Second),
			MaxClipDuration:  ParseDuration("CHK_MAX_CLIP_DURATION", 15*time.Second),
			SampleFPS:        ParseFloat("CHK_SAMPLE_FPS", 2),
			FrameQuality:     ParseInt("CHK_FRAME_QUALITY", 40),
		},
	}

	cfg.PublicBaseURL = ParseString("CHK_PUBLIC_BASE_URL", defaultPublicBaseURL(cfg.ListenAddr))
	return cfg
}

func defaultPublicBaseURL(listen string) string {
	addr := strings.TrimSpace(listen)
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// Validate checks the configuration for values the daemon cannot run with.
func (c AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data dir must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return c.Capture.Validate()
}

// Validate checks the capture policy for internally consistent values.
func (c CaptureConfig) Validate() error {
	if c.MaxTakes < 1 {
		return fmt.Errorf("config: max takes must be at least 1, got %d", c.MaxTakes)
	}
	if c.MinTakes < 1 {
		return fmt.Errorf("config: min takes must be at least 1, got %d", c.MinTakes)
	}
	if c.MinTakes > c.MaxTakes {
		return fmt.Errorf("config: min takes (%d) must not exceed max takes (%d)", c.MinTakes, c.MaxTakes)
	}
	if c.MinTotalDuration < 0 {
		return fmt.Errorf("config: min total duration must not be negative")
	}
	if c.MaxClipDuration <= 0 {
		return fmt.Errorf("config: max clip duration must be positive")
	}
	if c.SampleFPS <= 0 {
		return fmt.Errorf("config: sample fps must be positive, got %v", c.SampleFPS)
	}
	if c.FrameQuality < 1 || c.FrameQuality > 100 {
		return fmt.Errorf("config: frame quality must be in [1,100], got %d", c.FrameQuality)
	}
	return nil
}
