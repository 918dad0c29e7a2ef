package chordtuner

import "testing"

func TestChordTemplates(t *testing.T) {
	templates := ChordTemplates()
	if len(templates) != 24 {
		t.Fatalf("Expected 24 templates, got %d", len(templates))
	}

	seen := make(map[string]bool)
	for i, tpl := range templates {
		if tpl.Tones() != 3 {
			t.Errorf("%s: expected 3 tones, got %d", tpl.Label, tpl.Tones())
		}
		if seen[tpl.Label] {
			t.Errorf("duplicate label %s", tpl.Label)
		}
		seen[tpl.Label] = true

		minor := i >= 12
		if tpl.Minor != minor {
			t.Errorf("%s: expected minor=%v", tpl.Label, minor)
		}
		want := MajorWeight
		third := 4
		if minor {
			want = MinorWeight
			third = 3
		}
		if tpl.Weight != want {
			t.Errorf("%s: expected weight %v, got %v", tpl.Label, want, tpl.Weight)
		}
		root := tpl.Root
		if !tpl.Pattern[root] || !tpl.Pattern[(root+third)%12] || !tpl.Pattern[(root+7)%12] {
			t.Errorf("%s: wrong pattern %v", tpl.Label, tpl.Pattern)
		}
	}

	if templates[0].Label != "C" || templates[12].Label != "Cm" || templates[23].Label != "Bm" {
		t.Errorf("unexpected table order: %s %s %s", templates[0].Label, templates[12].Label, templates[23].Label)
	}
}

func TestChordTemplates_Copy(t *testing.T) {
	templates := ChordTemplates()
	templates[0].Label = "X"
	if ChordTemplates()[0].Label != "C" {
		t.Error("Expected ChordTemplates to return a copy")
	}
}

func TestChordMatch_CMajor(t *testing.T) {
	cfg := DefaultConfig()
	chroma := NewChromaExtractor(cfg).Extract(oneHzSpectrum(cMajorPeaks))
	cm := NewChordMatcher(cfg)

	res := cm.Match(chroma)
	if res.Label != "C" {
		t.Fatalf("Expected C, got %v", res)
	}
	if res.Confidence < 70 {
		t.Errorf("Expected confidence >= 70, got %d", res.Confidence)
	}

	var major, minor float64
	for _, tpl := range ChordTemplates() {
		switch tpl.Label {
		case "C":
			major = cm.Score(chroma, tpl)
		case "Cm":
			minor = cm.Score(chroma, tpl)
		}
	}
	if major <= minor {
		t.Errorf("Expected C (%v) to outrank Cm (%v)", major, minor)
	}
}

func TestChordMatch_Minor(t *testing.T) {
	// A, C, E with A strongest
	var chroma ChromaVector
	chroma[9], chroma[0], chroma[4] = 1, 0.8, 0.8

	res := NewChordMatcher(DefaultConfig()).Match(chroma)
	if res.Label != "Am" {
		t.Errorf("Expected Am, got %v", res)
	}
}

func TestChordMatch_Silence(t *testing.T) {
	res := NewChordMatcher(DefaultConfig()).Match(ChromaVector{})
	if res.Detected() || res.Confidence != 0 {
		t.Errorf("Expected no chord, got %+v", res)
	}
	if res.String() != "no chord" {
		t.Errorf("Expected 'no chord', got %q", res.String())
	}
}

func TestChordMatch_FlatChroma(t *testing.T) {
	var chroma ChromaVector
	for i := range chroma {
		chroma[i] = 1
	}
	// every major template ties, so there is no margin and the table order
	// decides: (3 - 0.9) / 3 * 70 = 49
	res := NewChordMatcher(DefaultConfig()).Match(chroma)
	if res.Label != "C" || res.Confidence != 49 {
		t.Errorf("Expected C at 49, got %+v", res)
	}
}

func TestChordMatch_MinConfidence(t *testing.T) {
	cfg := DefaultConfig()
	chroma := NewChromaExtractor(cfg).Extract(oneHzSpectrum(cMajorPeaks))

	cfg.Chord.MinConfidence = 90
	if res := NewChordMatcher(cfg).Match(chroma); res.Detected() {
		t.Errorf("Expected result below 90 to be dropped, got %+v", res)
	}
}

func TestChordMatch_Rank(t *testing.T) {
	var chroma ChromaVector
	chroma[7], chroma[11], chroma[2] = 1, 1, 1

	ranked := NewChordMatcher(DefaultConfig()).Rank(chroma)
	if len(ranked) != 24 {
		t.Fatalf("Expected 24 scores, got %d", len(ranked))
	}
	if ranked[0].Template.Label != "G" {
		t.Errorf("Expected G first, got %s", ranked[0].Template.Label)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("ranking not sorted at %d", i)
		}
	}
}
