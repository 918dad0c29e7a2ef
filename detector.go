package chordtuner

import (
	"context"
	"errors"
	"sync"
	"time"

	"chordtuner/logging"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
)

// Result is what one analysed frame produces. Chord mode fills Chroma and
// Chord; tuner mode fills Readings.
type Result struct {
	SessionID uuid.UUID
	Mode      Mode
	Frame     uint64
	Time      time.Time

	Chroma ChromaVector
	Chord  ChordDetectionResult

	Readings []PitchReading
}

// ResultFunc receives one Result per analysed frame, on the session's
// analysis goroutine. It may call Stop for its own session.
type ResultFunc func(Result)

// Detector runs the continuous analysis loop for at most one listening
// session at a time.
type Detector struct {
	cfg     *Config
	source  *FrameSource
	chroma  *ChromaExtractor
	matcher *ChordMatcher
	tuner   *Tuner
	log     logging.Logger

	mu      sync.Mutex
	current *Session
}

// NewDetector wires the detection pipeline onto source.
func NewDetector(cfg *Config, source *FrameSource) *Detector {
	return &Detector{
		cfg:     cfg,
		source:  source,
		chroma:  NewChromaExtractor(cfg),
		matcher: NewChordMatcher(cfg),
		tuner:   NewTuner(cfg),
		log:     cfg.logger(),
	}
}

// Analyze runs the pipeline for mode on one spectrum. It is pure.
func (d *Detector) Analyze(mode Mode, profile InstrumentProfile, spec MagnitudeSpectrum) Result {
	res := Result{Mode: mode}
	switch mode {
	case ModeChord:
		res.Chroma = d.chroma.Extract(spec)
		res.Chord = d.matcher.Match(res.Chroma)
	case ModeTuner:
		res.Readings = d.tuner.Compare(spec, profile.Targets)
	}
	return res
}

// Session returns the session currently owned by the detector, if any.
func (d *Detector) Session() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Start opens a capture session and begins analysing it. It fails with
// ErrAlreadyListening while another session is listening. If the device
// cannot be opened the failed session is returned with the error.
//
// The session ends when Stop is called, when ctx is cancelled, or when the
// device goes away. Done is closed in every case, after the loop has exited.
func (d *Detector) Start(ctx context.Context, mode Mode, profile InstrumentProfile, onResult ResultFunc) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cur := d.current; cur != nil {
		switch cur.State() {
		case StateRequesting, StateListening:
			return nil, xerrors.New(ErrAlreadyListening)
		}
	}

	s, err := d.source.Open(mode, profile)
	if err != nil {
		return s, err
	}

	d.current = s
	s.loopDone = make(chan struct{})
	s.listening.Store(true)
	go d.run(ctx, s, onResult)

	return s, nil
}

// run is the per-session frame loop. Each frame runs to completion before
// the next tick is taken, and the listening flag is checked before reading
// the device and again before delivering.
func (d *Detector) run(ctx context.Context, s *Session, onResult ResultFunc) {
	defer close(s.loopDone)

	log := d.log.WithFields(logging.Fields{"session": s.ID.String(), "mode": s.Mode.String()})
	ticker := time.NewTicker(d.cfg.Scheduler.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			d.finish(s, nil)
			return
		case <-ctx.Done():
			d.finish(s, nil)
			log.Info("capture stopped by context")
			return
		case <-ticker.C:
		}

		if !s.listening.Load() {
			d.finish(s, nil)
			return
		}

		spec, err := d.source.NextSpectrum(s)
		if err != nil {
			if errors.Is(err, ErrEndOfInput) {
				d.finish(s, nil)
				log.Info("input ended")
			} else {
				d.finish(s, err)
				log.Error(err, "capture failed")
			}
			return
		}

		res := d.Analyze(s.Mode, s.Profile, spec)
		res.SessionID = s.ID
		res.Frame = s.Frames()
		res.Time = time.Now()

		if onResult == nil {
			continue
		}
		// set before the re-check so Stop sees either the flag or no delivery
		s.delivering.Store(true)
		if !s.listening.Load() {
			s.delivering.Store(false)
			d.finish(s, nil)
			return
		}
		onResult(res)
		s.delivering.Store(false)
	}
}

// finish ends a session from inside its loop and releases its device.
func (d *Detector) finish(s *Session, err error) {
	s.listening.Store(false)
	if err != nil {
		s.fail(err)
	}
	d.source.Close(s)
	d.clear(s)
}

func (d *Detector) clear(s *Session) {
	d.mu.Lock()
	if d.current == s {
		d.current = nil
	}
	d.mu.Unlock()
}

// Stop ends s and releases its device and analysis unit before returning.
// Once Stop returns no further results are delivered for s. Stop is
// idempotent and accepts sessions in any state.
//
// While a result callback is running, Stop does not wait for the loop; the
// loop releases the session as soon as the callback returns and no further
// result is delivered. Done reports when that has happened.
func (d *Detector) Stop(s *Session) error {
	if s == nil {
		return nil
	}
	s.listening.Store(false)
	s.stopOnce.Do(func() { close(s.stop) })
	if s.loopDone != nil {
		if s.delivering.Load() {
			d.log.Debug("stop requested during delivery", logging.Fields{"session": s.ID.String()})
			return s.Err()
		}
		<-s.loopDone
	}

	d.source.Close(s)
	d.clear(s)

	d.log.Debug("session stopped", logging.Fields{
		"session": s.ID.String(),
		"state":   s.State().String(),
		"frames":  s.Frames(),
	})
	return s.Err()
}

// Close stops the current session, if any.
func (d *Detector) Close() error {
	return d.Stop(d.Session())
}
