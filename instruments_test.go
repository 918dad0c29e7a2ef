package chordtuner

import (
	"errors"
	"testing"
)

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile(" Guitar ")
	if err != nil {
		t.Fatalf("LookupProfile failed: %v", err)
	}
	if len(p.Targets) != 6 || p.Targets[1].Note != "A2" || p.Targets[1].Frequency != 110 {
		t.Errorf("unexpected guitar profile: %+v", p)
	}

	_, err = LookupProfile("theremin")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Expected ErrUnknownProfile, got %v", err)
	}
}

func TestProfileNames(t *testing.T) {
	names := ProfileNames()
	want := []string{"guitar", "mandolin", "piano", "ukulele"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
		}
		if _, err := LookupProfile(names[i]); err != nil {
			t.Errorf("registered profile %s not found: %v", names[i], err)
		}
	}
}

func TestProfileTargetsAreEqualTempered(t *testing.T) {
	// every target must be a real note, i.e. close to an equal-tempered pitch
	for _, name := range ProfileNames() {
		p, _ := LookupProfile(name)
		for _, target := range p.Targets {
			m := FrequencyToMIDI(target.Frequency)
			if d := m - float64(int(m+0.5)); d > 0.01 || d < -0.01 {
				t.Errorf("%s %s: %v Hz is %v semitones off", name, target.Note, target.Frequency, d)
			}
		}
	}
}
