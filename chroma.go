package chordtuner

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PitchClassNames indexes pitch classes from C (0) to B (11).
var PitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ChromaVector is a 12 bin pitch-class energy profile, C first. After
// extraction every element is in [0,1] and the largest is exactly 1, unless
// no energy qualified, in which case all elements are 0.
type ChromaVector [12]float64

// Max returns the largest element and its pitch class.
func (c ChromaVector) Max() (float64, int) {
	return floats.Max(c[:]), floats.MaxIdx(c[:])
}

// IsZero reports whether no energy was found.
func (c ChromaVector) IsZero() bool {
	for _, v := range c {
		if v != 0 {
			return false
		}
	}
	return true
}

func (c ChromaVector) String() string {
	s := "["
	for i, v := range c {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s:%.2f", PitchClassNames[i], v)
	}
	return s + "]"
}

// ChromaConfig holds the chroma extraction parameters.
type ChromaConfig struct {
	MinFrequency       float64
	MaxFrequency       float64
	MagnitudeThreshold float64
	BassOctave         int
	BassWeight         float64
	SmoothingKernel    [3]float64
}

// ChromaExtractor folds a magnitude spectrum onto 12 pitch classes. It
// keeps no state between calls.
type ChromaExtractor struct {
	cfg ChromaConfig
}

// NewChromaExtractor creates an extractor from the chroma section of cfg.
func NewChromaExtractor(cfg *Config) *ChromaExtractor {
	return &ChromaExtractor{cfg: ChromaConfig(cfg.Chroma)}
}

// NewChromaExtractorWith creates an extractor with explicit parameters.
func NewChromaExtractorWith(cfg ChromaConfig) *ChromaExtractor {
	return &ChromaExtractor{cfg: cfg}
}

// FrequencyToMIDI returns the fractional MIDI note number of f (A4 = 69).
func FrequencyToMIDI(f float64) float64 {
	return 12*math.Log2(f/440) + 69
}

// Extract computes the chroma vector of spec.
func (ce *ChromaExtractor) Extract(spec MagnitudeSpectrum) ChromaVector {
	var bins [12]float64

	for i, mag := range spec.Magnitudes {
		if mag < ce.cfg.MagnitudeThreshold || mag <= 0 {
			continue
		}
		f := spec.BinFrequency(i)
		if f < ce.cfg.MinFrequency || f > ce.cfg.MaxFrequency {
			continue
		}

		m := FrequencyToMIDI(f)
		class := pitchClass(m)
		octave := int(math.Floor(m/12)) - 1

		weight := mag
		if octave < ce.cfg.BassOctave {
			weight *= ce.cfg.BassWeight
		}
		bins[class] += weight
	}

	k := ce.cfg.SmoothingKernel
	var out ChromaVector
	for i := range out {
		out[i] = k[0]*bins[(i+11)%12] + k[1]*bins[i] + k[2]*bins[(i+1)%12]
	}

	peak := floats.Max(out[:])
	if peak <= 0 {
		return ChromaVector{}
	}
	// divide rather than scale by 1/peak so the peak lands exactly on 1
	for i := range out {
		out[i] /= peak
	}
	return out
}

// pitchClass maps a fractional MIDI note to 0..11.
func pitchClass(midi float64) int {
	c := int(math.Round(midi)) % 12
	if c < 0 {
		c += 12
	}
	return c
}
