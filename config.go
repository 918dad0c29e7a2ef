package chordtuner

import (
	"os"
	"strconv"
	"strings"
	"time"

	"chordtuner/logging"

	"github.com/mdobak/go-xerrors"
)

// Mode selects which detection pipeline a session runs.
type Mode int

const (
	ModeChord Mode = iota
	ModeTuner
)

func (m Mode) String() string {
	switch m {
	case ModeChord:
		return "chord"
	case ModeTuner:
		return "tuner"
	default:
		return "unknown"
	}
}

// ParseMode accepts "chord" or "tuner" (also "tune").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chord":
		return ModeChord, nil
	case "tuner", "tune":
		return ModeTuner, nil
	}
	return 0, xerrors.Newf("%w: %q", ErrUnknownMode, s)
}

// Config gathers every tunable parameter of the engine.
type Config struct {
	// --- Capture device ---
	Capture struct {
		SampleRate int    // requested capture rate in Hz (e.g. 44100)
		DeviceName string // substring of the input device name, "" = system default
	}

	// --- Analysis unit ---
	// Mirrors a browser analyser node: windowed FFT, 1/N scaling, temporal
	// smoothing, then dB mapped onto 0..255.
	Analyser struct {
		TunerWindowSize       int     // shorter window, faster response (2048)
		ChordWindowSize       int     // longer window, finer resolution (4096)
		SmoothingTimeConstant float64 // 0..1, weight of the previous frame per bin
		MinDecibels           float64 // maps to 0
		MaxDecibels           float64 // maps to 255
	}

	// --- Chroma extraction (chord mode) ---
	Chroma struct {
		MinFrequency       float64    // lower edge of the audible band (Hz)
		MaxFrequency       float64    // upper edge of the audible band (Hz)
		MagnitudeThreshold float64    // on the 0..255 scale; broad recall across chord tones
		BassOctave         int        // octaves below this one get BassWeight
		BassWeight         float64    // multiplier for energy below BassOctave
		SmoothingKernel    [3]float64 // circular weights for bin-1, bin, bin+1
	}

	// --- Template matching (chord mode) ---
	Chord struct {
		MinConfidence  int     // results below this report no chord
		AbsoluteWeight float64 // confidence weight of the top score
		MarginWeight   float64 // confidence weight of top minus runner-up
		OffPenalty     float64 // per-unit penalty for energy outside the pattern
	}

	// --- Tuner comparison ---
	Tuner struct {
		MagnitudeThreshold float64 // on the 0..255 scale; only confident peaks
		CaptureToleranceHz float64 // a peak counts for a target within this distance
		InTuneCents        float64 // |cents| below this is in tune
		Interpolate        bool    // refine peaks with parabolic interpolation, off by default
	}

	// --- Scheduler ---
	Scheduler struct {
		FrameInterval time.Duration // pacing of the analysis loop
	}

	// --- Serial meter output ---
	Meter struct {
		Port     string // "" disables the meter
		BaudRate int
	}

	Logger logging.Logger
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Capture.SampleRate = 44100

	cfg.Analyser.TunerWindowSize = 2048
	cfg.Analyser.ChordWindowSize = 4096
	cfg.Analyser.SmoothingTimeConstant = 0.8
	cfg.Analyser.MinDecibels = -100
	cfg.Analyser.MaxDecibels = -30

	cfg.Chroma.MinFrequency = 20
	cfg.Chroma.MaxFrequency = 20000
	cfg.Chroma.MagnitudeThreshold = 30
	cfg.Chroma.BassOctave = 4
	cfg.Chroma.BassWeight = 1.5
	cfg.Chroma.SmoothingKernel = [3]float64{0.2, 0.6, 0.2}

	cfg.Chord.MinConfidence = 30
	cfg.Chord.AbsoluteWeight = 70
	cfg.Chord.MarginWeight = 30
	cfg.Chord.OffPenalty = 0.1

	// Tuning wants narrow, confident matches on one fundamental, hence the
	// higher threshold than chroma extraction.
	cfg.Tuner.MagnitudeThreshold = 100
	cfg.Tuner.CaptureToleranceHz = 5
	cfg.Tuner.InTuneCents = 5
	cfg.Tuner.Interpolate = false

	cfg.Scheduler.FrameInterval = time.Second / 60

	cfg.Meter.BaudRate = 115200

	cfg.Logger = logging.GetGlobalLogger()

	return cfg
}

// WindowSizeFor returns the analysis window used by a mode.
func (c *Config) WindowSizeFor(mode Mode) int {
	if mode == ModeTuner {
		return c.Analyser.TunerWindowSize
	}
	return c.Analyser.ChordWindowSize
}

func (c *Config) logger() logging.Logger {
	if c.Logger == nil {
		return logging.GetGlobalLogger()
	}
	return c.Logger
}

// Environment variables read by LoadEnv.
const (
	EnvSampleRate     = "CHORDTUNER_SAMPLE_RATE"
	EnvDevice         = "CHORDTUNER_DEVICE"
	EnvChordThreshold = "CHORDTUNER_CHORD_THRESHOLD"
	EnvTunerThreshold = "CHORDTUNER_TUNER_THRESHOLD"
	EnvMinConfidence  = "CHORDTUNER_MIN_CONFIDENCE"
	EnvToleranceHz    = "CHORDTUNER_TOLERANCE_HZ"
	EnvInTuneCents    = "CHORDTUNER_IN_TUNE_CENTS"
	EnvBassWeight     = "CHORDTUNER_BASS_WEIGHT"
	EnvFrameInterval  = "CHORDTUNER_FRAME_INTERVAL"
	EnvMeterPort      = "CHORDTUNER_METER_PORT"
	EnvMeterBaud      = "CHORDTUNER_METER_BAUD"
)

// LoadEnv overrides cfg from CHORDTUNER_* environment variables. Unset
// variables leave the field untouched; malformed values are reported.
func LoadEnv(cfg *Config) error {
	if err := envInt(EnvSampleRate, &cfg.Capture.SampleRate); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvDevice); ok {
		cfg.Capture.DeviceName = v
	}
	if err := envFloat(EnvChordThreshold, &cfg.Chroma.MagnitudeThreshold); err != nil {
		return err
	}
	if err := envFloat(EnvTunerThreshold, &cfg.Tuner.MagnitudeThreshold); err != nil {
		return err
	}
	if err := envInt(EnvMinConfidence, &cfg.Chord.MinConfidence); err != nil {
		return err
	}
	if err := envFloat(EnvToleranceHz, &cfg.Tuner.CaptureToleranceHz); err != nil {
		return err
	}
	if err := envFloat(EnvInTuneCents, &cfg.Tuner.InTuneCents); err != nil {
		return err
	}
	if err := envFloat(EnvBassWeight, &cfg.Chroma.BassWeight); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvFrameInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return xerrors.New("invalid "+EnvFrameInterval, err)
		}
		cfg.Scheduler.FrameInterval = d
	}
	if v, ok := os.LookupEnv(EnvMeterPort); ok {
		cfg.Meter.Port = v
	}
	return envInt(EnvMeterBaud, &cfg.Meter.BaudRate)
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return xerrors.New("invalid "+key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return xerrors.New("invalid "+key, err)
	}
	*dst = f
	return nil
}
