package chordtuner

// MagnitudeSpectrum is one analysed frame. Magnitudes holds WindowSize/2
// samples on the 0..255 device scale. A spectrum is never modified after
// it is produced; consumers must treat Magnitudes as read-only.
type MagnitudeSpectrum struct {
	Magnitudes []float64
	SampleRate int
	WindowSize int
}

// BinFrequency returns the center frequency of bin i:
// i * sampleRate / (2 * bufferLength).
func (s MagnitudeSpectrum) BinFrequency(i int) float64 {
	n := len(s.Magnitudes)
	if n == 0 {
		return 0
	}
	return float64(i) * float64(s.SampleRate) / float64(2*n)
}

// Len is the number of magnitude bins.
func (s MagnitudeSpectrum) Len() int {
	return len(s.Magnitudes)
}
