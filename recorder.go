package chordtuner

import (
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mdobak/go-xerrors"
)

const recordBitDepth = 16

// Recorder writes every captured chunk to a 16-bit mono WAV file. The
// encoder is created on the first chunk, once the device rate is known.
type Recorder struct {
	path string

	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	frames  int
	closed  bool
	err     error
}

// NewRecorder records to path. The file is created lazily.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Tap implements SampleTap.
func (r *Recorder) Tap(samples []float32, sampleRate int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	if r.encoder == nil {
		f, err := os.Create(r.path)
		if err != nil {
			r.err = xerrors.New("create recording", err)
			return
		}
		r.file = f
		r.encoder = wav.NewEncoder(f, sampleRate, recordBitDepth, 1, 1)
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		data[i] = int(s * 32767)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: recordBitDepth,
	}
	if err := r.encoder.Write(buf); err != nil {
		r.err = xerrors.New("write recording", err)
		return
	}
	r.frames += len(samples)
}

// Frames returns how many frames were written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the WAV header. It reports the first write error, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.encoder == nil {
		return r.err
	}
	if err := r.encoder.Close(); err != nil && r.err == nil {
		r.err = xerrors.New("finalize recording", err)
	}
	if err := r.file.Close(); err != nil && r.err == nil {
		r.err = xerrors.New("close recording", err)
	}
	r.encoder = nil
	r.file = nil
	return r.err
}
