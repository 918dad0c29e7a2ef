package chordtuner

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a Session.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateRequesting
	StateListening
	StateStopped
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is one capture run. It exclusively owns one device and one
// analysis unit, and is handed to whoever called Start or Open.
type Session struct {
	ID        uuid.UUID
	Mode      Mode
	Profile   InstrumentProfile
	StartedAt time.Time

	state atomic.Int32

	mu     sync.Mutex
	device Device
	unit   *Analyser
	tap    SampleTap
	rate   int   // device sample rate
	halted error // set by the device stop callback
	err    error // terminal error, if the session failed

	// scheduler
	listening  atomic.Bool
	delivering atomic.Bool // a result callback is running
	stop       chan struct{}
	stopOnce   sync.Once
	loopDone   chan struct{} // nil until a loop is started
	done       chan struct{}
	doneOnce   sync.Once
	frames     atomic.Uint64
}

func newSession(mode Mode, profile InstrumentProfile) *Session {
	s := &Session{
		ID:        uuid.New(),
		Mode:      mode,
		Profile:   profile,
		StartedAt: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.state.Store(int32(StateIdle))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
}

// Err returns the terminal error of a failed session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session has stopped or failed and its resources
// are released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Frames returns the number of frames analysed so far.
func (s *Session) Frames() uint64 {
	return s.frames.Load()
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s, %s)", s.ID, s.Mode, s.State())
}

// write feeds captured samples to the analysis unit. Runs on the audio
// thread.
func (s *Session) write(samples []float32) {
	s.mu.Lock()
	unit, tap, rate := s.unit, s.tap, s.rate
	s.mu.Unlock()
	if unit == nil {
		return
	}
	unit.Write(samples)
	if tap != nil {
		tap.Tap(samples, rate)
	}
}

// halt records why the device stopped on its own.
func (s *Session) halt(reason error) {
	s.mu.Lock()
	if s.halted == nil {
		s.halted = reason
	}
	s.mu.Unlock()
}

func (s *Session) haltReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// fail records a terminal error and moves to Failed.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.setState(StateFailed)
}

// release drops the device and analysis unit. Safe in any state and more
// than once; returns the device close error, if any.
func (s *Session) release() error {
	s.mu.Lock()
	device, unit := s.device, s.unit
	s.device, s.unit, s.tap = nil, nil, nil
	s.mu.Unlock()

	var err error
	if device != nil {
		err = device.Close()
	}
	if unit != nil {
		unit.Close()
	}
	return err
}

func (s *Session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
