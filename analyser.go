package chordtuner

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// AnalyserConfig configures an Analyser.
type AnalyserConfig struct {
	SampleRate            int
	WindowSize            int
	SmoothingTimeConstant float64
	MinDecibels           float64
	MaxDecibels           float64
}

// Analyser is the frequency-domain analysis unit of a session. The capture
// callback feeds it with Write; the scheduler takes snapshots with Spectrum.
//
// Spectrum follows the byte frequency data of a browser analyser node:
// Blackman window, FFT, magnitude / N, exponential smoothing against the
// previous frame, 20*log10, then [MinDecibels, MaxDecibels] mapped to 0..255.
type Analyser struct {
	cfg AnalyserConfig

	mu       sync.Mutex
	ring     []float64 // latest WindowSize samples
	ringPos  int       // next write position
	window   []float64
	smoothed []float64 // previous frame magnitudes, for temporal smoothing
	closed   bool
}

// NewAnalyser creates an analysis unit. WindowSize must be a power of two.
func NewAnalyser(cfg AnalyserConfig) *Analyser {
	return &Analyser{
		cfg:      cfg,
		ring:     make([]float64, cfg.WindowSize),
		window:   window.Blackman(cfg.WindowSize),
		smoothed: make([]float64, cfg.WindowSize/2),
	}
}

// SetSampleRate records the rate the device actually delivers.
func (a *Analyser) SetSampleRate(rate int) {
	a.mu.Lock()
	a.cfg.SampleRate = rate
	a.mu.Unlock()
}

// WindowSize returns the FFT size.
func (a *Analyser) WindowSize() int {
	return a.cfg.WindowSize
}

// Write appends captured samples, overwriting the oldest ones. Called from
// the audio driver thread; it only copies.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	n := len(a.ring)
	// only the tail can survive in the ring
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	for _, s := range samples {
		a.ring[a.ringPos] = float64(s)
		a.ringPos = (a.ringPos + 1) % n
	}
}

// Spectrum analyses the current window and returns a new spectrum.
func (a *Analyser) Spectrum() MagnitudeSpectrum {
	a.mu.Lock()
	n := len(a.ring)
	frame := make([]float64, n)
	// oldest sample first
	copy(frame, a.ring[a.ringPos:])
	copy(frame[n-a.ringPos:], a.ring[:a.ringPos])
	a.mu.Unlock()

	floats.Mul(frame, a.window)
	spectrum := fft.FFTReal(frame)

	half := n / 2
	mags := make([]float64, half)
	for k := 0; k < half; k++ {
		mags[k] = cmplx.Abs(spectrum[k])
	}
	floats.Scale(1/float64(n), mags)

	a.mu.Lock()
	rate := a.cfg.SampleRate
	tau := a.cfg.SmoothingTimeConstant
	for k := range mags {
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mags[k]
		mags[k] = a.toByteScale(a.smoothed[k])
	}
	a.mu.Unlock()

	return MagnitudeSpectrum{
		Magnitudes: mags,
		SampleRate: rate,
		WindowSize: n,
	}
}

func (a *Analyser) toByteScale(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	span := a.cfg.MaxDecibels - a.cfg.MinDecibels
	if span <= 0 {
		return 0
	}
	v := math.Floor(255 / span * (db - a.cfg.MinDecibels))
	return math.Max(0, math.Min(255, v))
}

// Close releases the unit; later writes are ignored. Safe to call twice.
func (a *Analyser) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
