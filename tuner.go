package chordtuner

import (
	"fmt"
	"math"
)

// PitchReading is the deviation of one detected peak from its target.
type PitchReading struct {
	Note      string
	Target    float64 // Hz
	Frequency float64 // detected, Hz
	Cents     float64 // positive is sharp
	InTune    bool
}

func (r PitchReading) String() string {
	state := "flat"
	switch {
	case r.InTune:
		state = "in tune"
	case r.Cents > 0:
		state = "sharp"
	}
	return fmt.Sprintf("%s %.2fHz %+.1f cents (%s)", r.Note, r.Frequency, r.Cents, state)
}

// TunerConfig holds the comparison parameters. They are independent of the
// chroma settings.
type TunerConfig struct {
	MagnitudeThreshold float64
	CaptureToleranceHz float64
	InTuneCents        float64
	Interpolate        bool
}

// Tuner compares spectral peaks against instrument targets.
type Tuner struct {
	cfg TunerConfig
}

// NewTuner creates a tuner from the tuner section of cfg.
func NewTuner(cfg *Config) *Tuner {
	return &Tuner{cfg: TunerConfig(cfg.Tuner)}
}

// Cents returns 1200 * log2(f / target).
func Cents(f, target float64) float64 {
	return 1200 * math.Log2(f/target)
}

// Compare returns one reading per target that has a qualifying peak within
// the capture tolerance, in target order. The strongest such peak wins and
// is reported at its bin centre frequency, or at its interpolated frequency
// when Interpolate is set. Targets with no peak in this frame are omitted.
func (t *Tuner) Compare(spec MagnitudeSpectrum, targets []TuningTarget) []PitchReading {
	type best struct {
		bin int
		mag float64
	}
	found := make([]best, len(targets))
	for i := range found {
		found[i].bin = -1
	}

	for i, mag := range spec.Magnitudes {
		if mag <= t.cfg.MagnitudeThreshold {
			continue
		}
		f := spec.BinFrequency(i)
		for j, target := range targets {
			if math.Abs(f-target.Frequency) >= t.cfg.CaptureToleranceHz {
				continue
			}
			if mag > found[j].mag {
				found[j] = best{bin: i, mag: mag}
			}
		}
	}

	var readings []PitchReading
	for j, target := range targets {
		if found[j].bin < 0 {
			continue
		}
		f := spec.BinFrequency(found[j].bin)
		if t.cfg.Interpolate {
			f = t.refine(spec, found[j].bin)
			// a refined peak must still sit inside the window it matched in
			if math.Abs(f-target.Frequency) >= t.cfg.CaptureToleranceHz {
				continue
			}
		}
		cents := Cents(f, target.Frequency)
		readings = append(readings, PitchReading{
			Note:      target.Note,
			Target:    target.Frequency,
			Frequency: f,
			Cents:     cents,
			InTune:    math.Abs(cents) < t.cfg.InTuneCents,
		})
	}
	return readings
}

// refine moves a peak by parabolic interpolation over its neighbours,
// limited to half a bin either way.
func (t *Tuner) refine(spec MagnitudeSpectrum, bin int) float64 {
	mags := spec.Magnitudes
	if bin <= 0 || bin >= len(mags)-1 {
		return spec.BinFrequency(bin)
	}
	y1, y2, y3 := mags[bin-1], mags[bin], mags[bin+1]

	delta := 0.0
	denominator := 2 * (2*y2 - y1 - y3)
	if denominator != 0 {
		delta = (y3 - y1) / denominator
	}
	delta = math.Max(-0.5, math.Min(0.5, delta))

	binWidth := spec.BinFrequency(1)
	return (float64(bin) + delta) * binWidth
}
