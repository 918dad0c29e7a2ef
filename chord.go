package chordtuner

import (
	"math"
	"sort"
)

// Template weights.
const (
	MajorWeight = 1.0
	MinorWeight = 0.9
)

// ChordTemplate is a chord shape to match chroma vectors against.
type ChordTemplate struct {
	Label   string
	Root    int
	Minor   bool
	Pattern [12]bool
	Weight  float64
}

// Tones returns the number of pitch classes set in the pattern.
func (t ChordTemplate) Tones() int {
	n := 0
	for _, on := range t.Pattern {
		if on {
			n++
		}
	}
	return n
}

// chordTemplates is built once and never modified.
var chordTemplates = buildTemplates()

func buildTemplates() []ChordTemplate {
	templates := make([]ChordTemplate, 0, 24)
	for root := 0; root < 12; root++ {
		templates = append(templates, triad(root, 4, false))
	}
	for root := 0; root < 12; root++ {
		templates = append(templates, triad(root, 3, true))
	}
	return templates
}

// triad builds root, third (3 or 4 semitones up) and fifth.
func triad(root, third int, minor bool) ChordTemplate {
	t := ChordTemplate{
		Label:  PitchClassNames[root],
		Root:   root,
		Minor:  minor,
		Weight: MajorWeight,
	}
	if minor {
		t.Label += "m"
		t.Weight = MinorWeight
	}
	t.Pattern[root] = true
	t.Pattern[(root+third)%12] = true
	t.Pattern[(root+7)%12] = true
	return t
}

// ChordTemplates returns a copy of the 24 templates, majors first.
func ChordTemplates() []ChordTemplate {
	out := make([]ChordTemplate, len(chordTemplates))
	copy(out, chordTemplates)
	return out
}

// ChordDetectionResult is the outcome of one frame. An empty Label means
// nothing was detected, and then Confidence is 0.
type ChordDetectionResult struct {
	Label      string
	Confidence int // 0..100
}

// Detected reports whether a chord label was produced.
func (r ChordDetectionResult) Detected() bool {
	return r.Label != ""
}

func (r ChordDetectionResult) String() string {
	if !r.Detected() {
		return "no chord"
	}
	return r.Label
}

// TemplateScore is the size-normalised score of one template.
type TemplateScore struct {
	Template ChordTemplate
	Score    float64
}

// ChordMatcherConfig holds the matching parameters.
type ChordMatcherConfig struct {
	MinConfidence  int
	AbsoluteWeight float64
	MarginWeight   float64
	OffPenalty     float64
}

// ChordMatcher scores chroma vectors against the template table. It keeps
// no state between calls.
type ChordMatcher struct {
	cfg ChordMatcherConfig
}

// NewChordMatcher creates a matcher from the chord section of cfg.
func NewChordMatcher(cfg *Config) *ChordMatcher {
	return &ChordMatcher{cfg: ChordMatcherConfig(cfg.Chord)}
}

// Score returns the template score: pattern tones add chroma*weight, every
// other pitch class subtracts OffPenalty*chroma, and the sum is divided by
// the number of tones so larger chords gain nothing from size alone.
func (cm *ChordMatcher) Score(chroma ChromaVector, t ChordTemplate) float64 {
	var sum float64
	for i, v := range chroma {
		if t.Pattern[i] {
			sum += v * t.Weight
		} else {
			sum -= cm.cfg.OffPenalty * v
		}
	}
	tones := t.Tones()
	if tones == 0 {
		return 0
	}
	return sum / float64(tones)
}

// Rank scores every template, best first. Equal scores keep table order.
func (cm *ChordMatcher) Rank(chroma ChromaVector) []TemplateScore {
	scores := make([]TemplateScore, len(chordTemplates))
	for i, t := range chordTemplates {
		scores[i] = TemplateScore{Template: t, Score: cm.Score(chroma, t)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// Match picks the best template. Confidence blends the absolute fit with
// the margin over the runner-up, since loud noise can fit any template.
func (cm *ChordMatcher) Match(chroma ChromaVector) ChordDetectionResult {
	ranked := cm.Rank(chroma)
	top, second := ranked[0].Score, ranked[1].Score

	raw := math.Round(top*cm.cfg.AbsoluteWeight + (top-second)*cm.cfg.MarginWeight)
	confidence := int(math.Max(0, math.Min(100, raw)))

	if confidence < cm.cfg.MinConfidence || confidence == 0 {
		return ChordDetectionResult{}
	}
	return ChordDetectionResult{
		Label:      ranked[0].Template.Label,
		Confidence: confidence,
	}
}
