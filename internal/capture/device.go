package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/checkcells/checkcells/internal/log"
)

// Sentinel errors for device acquisition.
var (
	// ErrDeviceUnavailable indicates the camera could not be acquired
	// (permission denied or no device). The workflow aborts at entry.
	ErrDeviceUnavailable = errors.New("capture: camera unavailable or permission denied")

	// ErrDeviceReleased indicates an operation against an already released stream.
	ErrDeviceReleased = errors.New("capture: camera stream already released")
)

// Device is a handle on an acquired camera stream.
type Device interface {
	// ID identifies the underlying device for logging.
	ID() string
	// Close releases the stream. Implementations must tolerate a single call only;
	// the DeviceManager guarantees it is not called twice.
	Close() error
}

// DeviceOpener acquires a camera stream. Implementations wrap the actual
// capture transport (a hardware microscope camera, a test stub).
type DeviceOpener interface {
	Open(ctx context.Context) (Device, error)
}

// DeviceManager owns the single camera stream for one workflow instance.
// The stream is acquired once, shared across all recording sessions of the
// workflow, and released exactly once on cancel or finalize.
type DeviceManager struct {
	opener DeviceOpener

	mu       sync.Mutex
	dev      Device
	released bool
}

// NewDeviceManager creates a manager around the given opener.
func NewDeviceManager(opener DeviceOpener) *DeviceManager {
	return &DeviceManager{opener: opener}
}

// Acquire opens the camera stream. Calling Acquire on a manager that already
// holds a stream is an error; after release the manager cannot be reused.
func (m *DeviceManager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return ErrDeviceReleased
	}
	if m.dev != nil {
		return fmt.Errorf("capture: camera stream already acquired")
	}

	dev, err := m.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	m.dev = dev

	logger := log.WithComponent("capture")
	logger.Debug().
		Str(log.FieldEvent, "device.acquired").
		Str("device", dev.ID()).
		Msg("camera stream acquired")
	return nil
}

// Held reports whether the manager currently holds a live stream.
func (m *DeviceManager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev != nil && !m.released
}

// Release closes the camera stream. Safe to call more than once; only the
// first call closes the underlying device.
func (m *DeviceManager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released || m.dev == nil {
		m.released = true
		return nil
	}
	m.released = true

	err := m.dev.Close()
	logger := log.WithComponent("capture")
	logger.Debug().
		Str(log.FieldEvent, "device.released").
		Str("device", m.dev.ID()).
		Err(err).
		Msg("camera stream released")
	if err != nil {
		return fmt.Errorf("capture: release camera stream: %w", err)
	}
	return nil
}
