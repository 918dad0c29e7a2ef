package chordtuner

import (
	"chordtuner/logging"
)

// SampleFunc receives mono float32 samples in [-1, 1]. It runs on the audio
// driver thread and must return quickly.
type SampleFunc func(samples []float32)

// StopFunc is called when a device stops delivering samples without being
// asked to. reason is ErrCaptureInterrupted or ErrEndOfInput.
type StopFunc func(reason error)

// Device is an exclusively owned input device.
type Device interface {
	// Start begins delivering samples.
	Start() error
	// Close stops the device and releases it. Safe to call more than once.
	Close() error
	// SampleRate is the rate the device actually delivers.
	SampleRate() int
}

// DeviceRequest describes the device a session wants.
type DeviceRequest struct {
	SampleRate int
	DeviceName string
	Logger     logging.Logger
}

// DeviceOpener acquires a device. Failures are reported as
// ErrPermissionDenied or ErrDeviceUnavailable, and leave nothing open.
type DeviceOpener func(req DeviceRequest, onSamples SampleFunc, onStop StopFunc) (Device, error)

// SampleTap observes every captured chunk, e.g. to record it.
type SampleTap interface {
	Tap(samples []float32, sampleRate int)
}
