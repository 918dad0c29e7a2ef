package chordtuner

import (
	"errors"

	"chordtuner/logging"

	"github.com/mdobak/go-xerrors"
)

// FrameSource turns an input device into a stream of magnitude spectra.
type FrameSource struct {
	cfg  *Config
	open DeviceOpener
	tap  SampleTap
	log  logging.Logger
}

// NewFrameSource creates a frame source acquiring devices through open.
// A nil opener means live microphone capture.
func NewFrameSource(cfg *Config, open DeviceOpener) *FrameSource {
	if open == nil {
		open = OpenAudioCapture
	}
	return &FrameSource{
		cfg:  cfg,
		open: open,
		log:  cfg.logger(),
	}
}

// SetTap installs an observer for every captured chunk of later sessions.
func (fs *FrameSource) SetTap(tap SampleTap) {
	fs.tap = tap
}

// Open acquires a device and an analysis unit sized for mode. On failure the
// returned session is Failed, carries the error, and holds no resources.
func (fs *FrameSource) Open(mode Mode, profile InstrumentProfile) (*Session, error) {
	if mode != ModeChord && mode != ModeTuner {
		return nil, xerrors.Newf("%w: %d", ErrUnknownMode, int(mode))
	}

	s := newSession(mode, profile)
	s.setState(StateRequesting)
	log := fs.log.WithFields(logging.Fields{"session": s.ID.String(), "mode": mode.String()})

	unit := NewAnalyser(AnalyserConfig{
		SampleRate:            fs.cfg.Capture.SampleRate,
		WindowSize:            fs.cfg.WindowSizeFor(mode),
		SmoothingTimeConstant: fs.cfg.Analyser.SmoothingTimeConstant,
		MinDecibels:           fs.cfg.Analyser.MinDecibels,
		MaxDecibels:           fs.cfg.Analyser.MaxDecibels,
	})
	s.mu.Lock()
	s.unit = unit
	s.tap = fs.tap
	s.rate = fs.cfg.Capture.SampleRate
	s.mu.Unlock()

	req := DeviceRequest{
		SampleRate: fs.cfg.Capture.SampleRate,
		DeviceName: fs.cfg.Capture.DeviceName,
		Logger:     log,
	}
	device, err := fs.open(req, s.write, s.halt)
	if err != nil {
		return fs.abort(s, log, asCaptureError(err))
	}
	s.mu.Lock()
	s.device = device
	s.rate = device.SampleRate()
	s.mu.Unlock()
	unit.SetSampleRate(device.SampleRate())

	if err := device.Start(); err != nil {
		return fs.abort(s, log, asCaptureError(err))
	}

	s.setState(StateListening)
	log.Info("capture started", logging.Fields{
		"sample_rate": device.SampleRate(),
		"window":      unit.WindowSize(),
		"profile":     profile.Name,
	})
	return s, nil
}

func (fs *FrameSource) abort(s *Session, log logging.Logger, err error) (*Session, error) {
	if cerr := s.release(); cerr != nil {
		log.Warn("release after failed open", logging.Fields{"error": cerr.Error()})
	}
	s.fail(err)
	s.markDone()
	log.Error(err, "capture failed to start")
	return s, err
}

// asCaptureError keeps taxonomy errors and classifies anything else.
func asCaptureError(err error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	return classifyDeviceError(err)
}

// NextSpectrum returns the spectrum of the most recent window.
func (fs *FrameSource) NextSpectrum(s *Session) (MagnitudeSpectrum, error) {
	if s == nil || s.State() != StateListening {
		return MagnitudeSpectrum{}, xerrors.New(ErrSessionNotActive)
	}
	if reason := s.haltReason(); reason != nil {
		return MagnitudeSpectrum{}, reason
	}
	s.mu.Lock()
	unit := s.unit
	s.mu.Unlock()
	if unit == nil {
		return MagnitudeSpectrum{}, xerrors.New(ErrSessionNotActive)
	}
	s.frames.Add(1)
	return unit.Spectrum(), nil
}

// Close releases the session's device and analysis unit. It accepts nil,
// sessions that never finished opening and failed sessions, and may be
// called repeatedly.
func (fs *FrameSource) Close(s *Session) {
	if s == nil {
		return
	}
	if err := s.release(); err != nil {
		fs.log.Warn("device close", logging.Fields{"session": s.ID.String(), "error": err.Error()})
	}
	if s.State() != StateFailed {
		s.setState(StateStopped)
	}
	s.markDone()
}
