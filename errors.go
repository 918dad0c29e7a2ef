package chordtuner

import (
	"strings"

	"github.com/mdobak/go-xerrors"
)

// Terminal capture errors. A session that reports one of these is Failed.
var (
	ErrPermissionDenied   = xerrors.Message("microphone permission denied")
	ErrDeviceUnavailable  = xerrors.Message("no audio input device available")
	ErrCaptureInterrupted = xerrors.Message("audio capture interrupted")
)

// ErrEndOfInput ends a replay session. It is not a failure.
var ErrEndOfInput = xerrors.Message("end of audio input")

// Usage errors.
var (
	ErrAlreadyListening = xerrors.Message("detector is already listening")
	ErrSessionNotActive = xerrors.Message("session is not active")
	ErrUnknownProfile   = xerrors.Message("unknown instrument profile")
	ErrUnknownMode      = xerrors.Message("unknown analysis mode")
	ErrMeterClosed      = xerrors.Message("meter connection not open")
)

// classifyDeviceError maps a backend failure to the capture taxonomy.
// Backends report denied access with different wording, so the message is
// inspected rather than a backend specific code.
func classifyDeviceError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"),
		strings.Contains(msg, "access denied"),
		strings.Contains(msg, "not authorized"):
		return xerrors.Newf("%w: %v", ErrPermissionDenied, err)
	default:
		return xerrors.Newf("%w: %v", ErrDeviceUnavailable, err)
	}
}
