package chordtuner

import (
	"sort"
	"strings"

	"github.com/mdobak/go-xerrors"
)

// TuningTarget is a note an instrument is tuned to.
type TuningTarget struct {
	Note      string
	Frequency float64
}

// InstrumentProfile is a named set of tuning targets.
type InstrumentProfile struct {
	Name    string
	Targets []TuningTarget
}

// Standard tunings, lowest string first.
var (
	Guitar = InstrumentProfile{
		Name: "guitar",
		Targets: []TuningTarget{
			{Note: "E2", Frequency: 82.41},
			{Note: "A2", Frequency: 110.00},
			{Note: "D3", Frequency: 146.83},
			{Note: "G3", Frequency: 196.00},
			{Note: "B3", Frequency: 246.94},
			{Note: "E4", Frequency: 329.63},
		},
	}

	// Re-entrant GCEA tuning.
	Ukulele = InstrumentProfile{
		Name: "ukulele",
		Targets: []TuningTarget{
			{Note: "G4", Frequency: 392.00},
			{Note: "C4", Frequency: 261.63},
			{Note: "E4", Frequency: 329.63},
			{Note: "A4", Frequency: 440.00},
		},
	}

	Mandolin = InstrumentProfile{
		Name: "mandolin",
		Targets: []TuningTarget{
			{Note: "G3", Frequency: 196.00},
			{Note: "D4", Frequency: 293.66},
			{Note: "A4", Frequency: 440.00},
			{Note: "E5", Frequency: 659.26},
		},
	}

	// Concert pitch reference.
	Piano = InstrumentProfile{
		Name: "piano",
		Targets: []TuningTarget{
			{Note: "A4", Frequency: 440.00},
		},
	}
)

var profiles = map[string]InstrumentProfile{
	Guitar.Name:   Guitar,
	Ukulele.Name:  Ukulele,
	Mandolin.Name: Mandolin,
	Piano.Name:    Piano,
}

// LookupProfile returns the profile registered under name.
func LookupProfile(name string) (InstrumentProfile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return InstrumentProfile{}, xerrors.Newf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// ProfileNames lists the registered profiles alphabetically.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
