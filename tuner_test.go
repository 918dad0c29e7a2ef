package chordtuner

import (
	"math"
	"testing"
)

// tunerSpectrum returns a 2048 point spectrum at 2048 Hz, so bin i is i Hz.
func tunerSpectrum(peaks map[int]float64) MagnitudeSpectrum {
	mags := make([]float64, 1024)
	for bin, m := range peaks {
		mags[bin] = m
	}
	return MagnitudeSpectrum{Magnitudes: mags, SampleRate: 2048, WindowSize: 2048}
}

func TestTuner_InTune(t *testing.T) {
	tuner := NewTuner(DefaultConfig())
	readings := tuner.Compare(tunerSpectrum(map[int]float64{110: 200}), Guitar.Targets)

	if len(readings) != 1 {
		t.Fatalf("Expected one reading, got %v", readings)
	}
	r := readings[0]
	if r.Note != "A2" {
		t.Errorf("Expected A2, got %s", r.Note)
	}
	if math.Abs(r.Cents) > 1 {
		t.Errorf("Expected within 1 cent, got %v", r.Cents)
	}
	if !r.InTune {
		t.Errorf("Expected in tune, got %v", r)
	}
}

func TestTuner_Sharp(t *testing.T) {
	tuner := NewTuner(DefaultConfig())
	readings := tuner.Compare(tunerSpectrum(map[int]float64{113: 200}), Guitar.Targets)

	if len(readings) != 1 {
		t.Fatalf("Expected one reading, got %v", readings)
	}
	r := readings[0]
	want := Cents(113, 110)
	if math.Abs(r.Cents-want) > 0.01 || r.Cents < 46 {
		t.Errorf("Expected about +46 cents, got %v", r.Cents)
	}
	if r.InTune {
		t.Errorf("Expected out of tune, got %v", r)
	}
}

func TestTuner_Flat(t *testing.T) {
	tuner := NewTuner(DefaultConfig())
	readings := tuner.Compare(tunerSpectrum(map[int]float64{107: 200}), Guitar.Targets)

	if len(readings) != 1 || readings[0].Cents >= 0 || readings[0].InTune {
		t.Errorf("Expected one flat reading, got %v", readings)
	}
}

func TestTuner_NoPeak(t *testing.T) {
	tuner := NewTuner(DefaultConfig())

	// magnitude must be strictly above the threshold
	if readings := tuner.Compare(tunerSpectrum(map[int]float64{110: 100}), Guitar.Targets); len(readings) != 0 {
		t.Errorf("Expected no readings at the threshold, got %v", readings)
	}
	if readings := tuner.Compare(tunerSpectrum(nil), Guitar.Targets); len(readings) != 0 {
		t.Errorf("Expected no readings for silence, got %v", readings)
	}
}

func TestTuner_OutsideTolerance(t *testing.T) {
	tuner := NewTuner(DefaultConfig())
	readings := tuner.Compare(tunerSpectrum(map[int]float64{120: 255}), Guitar.Targets)
	if len(readings) != 0 {
		t.Errorf("Expected 120 Hz to match no string, got %v", readings)
	}
}

func TestTuner_StrongestPeakWins(t *testing.T) {
	tuner := NewTuner(DefaultConfig())
	readings := tuner.Compare(tunerSpectrum(map[int]float64{107: 150, 111: 220}), Guitar.Targets)

	if len(readings) != 1 {
		t.Fatalf("Expected one reading, got %v", readings)
	}
	if readings[0].Frequency != 111 {
		t.Errorf("Expected the 111 Hz peak, got %v", readings[0].Frequency)
	}
}

func TestTuner_MultipleStrings(t *testing.T) {
	tuner := NewTuner(DefaultConfig())
	readings := tuner.Compare(tunerSpectrum(map[int]float64{82: 180, 196: 180, 330: 180}), Guitar.Targets)

	notes := make([]string, len(readings))
	for i, r := range readings {
		notes[i] = r.Note
	}
	want := []string{"E2", "G3", "E4"}
	if len(notes) != len(want) {
		t.Fatalf("Expected %v, got %v", want, notes)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, notes)
		}
	}
}

func TestTuner_Interpolation(t *testing.T) {
	spec := tunerSpectrum(map[int]float64{109: 0, 110: 200, 111: 100})

	readings := NewTuner(DefaultConfig()).Compare(spec, Guitar.Targets)
	if len(readings) != 1 || readings[0].Frequency != 110 {
		t.Fatalf("Expected the bin centre by default, got %v", readings)
	}

	cfg := DefaultConfig()
	cfg.Tuner.Interpolate = true
	readings = NewTuner(cfg).Compare(spec, Guitar.Targets)
	if len(readings) != 1 {
		t.Fatalf("Expected one reading, got %v", readings)
	}
	// (100 - 0) / (2 * (400 - 0 - 100)) = 1/6 bin
	if math.Abs(readings[0].Frequency-(110+1.0/6)) > 1e-9 {
		t.Errorf("Expected interpolated peak, got %v", readings[0].Frequency)
	}
}

// deviceSpectrum returns a spectrum shaped like a 2048 point capture at
// 44100 Hz, about 21.5 Hz per bin.
func deviceSpectrum(peaks map[int]float64) MagnitudeSpectrum {
	mags := make([]float64, 1024)
	for bin, m := range peaks {
		mags[bin] = m
	}
	return MagnitudeSpectrum{Magnitudes: mags, SampleRate: 44100, WindowSize: 2048}
}

func TestTuner_DeviceResolution(t *testing.T) {
	// bin 5 is 107.67 Hz, inside A2's window; bin 6 is 129.2 Hz, outside it
	spec := deviceSpectrum(map[int]float64{5: 200, 6: 190})
	binHz := 5 * 44100.0 / 2048

	readings := NewTuner(DefaultConfig()).Compare(spec, Guitar.Targets)
	if len(readings) != 1 {
		t.Fatalf("Expected one reading, got %v", readings)
	}
	r := readings[0]
	if r.Note != "A2" || r.Frequency != binHz {
		t.Errorf("Expected A2 at %v Hz, got %v", binHz, r)
	}
	if math.Abs(r.Cents-Cents(binHz, 110)) > 1e-9 || r.Cents > -37 || r.Cents < -37.2 {
		t.Errorf("Expected about -37.1 cents, got %v", r.Cents)
	}
	if r.InTune || r.String() != "A2 107.67Hz -37.1 cents (flat)" {
		t.Errorf("Expected a flat reading, got %q", r.String())
	}

	// interpolation would move the peak to ~117 Hz, out of the window it
	// matched in, so the reading is dropped instead of turning sharp
	cfg := DefaultConfig()
	cfg.Tuner.Interpolate = true
	if readings := NewTuner(cfg).Compare(spec, Guitar.Targets); len(readings) != 0 {
		t.Errorf("Expected no reading, got %v", readings)
	}

	// a small refinement stays inside the window and keeps its sign
	readings = NewTuner(cfg).Compare(deviceSpectrum(map[int]float64{5: 200, 6: 20}), Guitar.Targets)
	if len(readings) != 1 {
		t.Fatalf("Expected one refined reading, got %v", readings)
	}
	if f := readings[0].Frequency; f <= binHz || math.Abs(f-110) >= 5 || readings[0].Cents >= 0 {
		t.Errorf("Expected a flat refined reading inside the window, got %v", readings[0])
	}
}

func TestCents(t *testing.T) {
	tests := []struct {
		f, target, want float64
	}{
		{110, 110, 0},
		{220, 110, 1200},
		{55, 110, -1200},
		{440 * math.Pow(2, 1.0/12), 440, 100},
	}
	for _, tt := range tests {
		if got := Cents(tt.f, tt.target); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Cents(%v, %v) = %v, want %v", tt.f, tt.target, got, tt.want)
		}
	}
}
