package chordtuner

import (
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mdobak/go-xerrors"
)

// ReplayChunkSize is the number of frames delivered per tick.
const ReplayChunkSize = 1024

// ReplayDevice plays a WAV file into a session at real-time speed, standing
// in for a microphone.
type ReplayDevice struct {
	file       *os.File
	decoder    *wav.Decoder
	sampleRate int
	channels   int
	bitDepth   int

	onSamples SampleFunc
	onStop    StopFunc

	mu      sync.Mutex
	started bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
}

// OpenReplay returns a DeviceOpener reading path. The requested sample rate
// is ignored; the file's rate wins.
func OpenReplay(path string) DeviceOpener {
	return func(req DeviceRequest, onSamples SampleFunc, onStop StopFunc) (Device, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, classifyDeviceError(err)
		}
		decoder := wav.NewDecoder(f)
		if !decoder.IsValidFile() {
			f.Close()
			return nil, xerrors.Newf("%w: %s is not a valid wav file", ErrDeviceUnavailable, path)
		}
		switch {
		case decoder.SampleRate == 0, decoder.NumChans == 0:
			f.Close()
			return nil, xerrors.Newf("%w: %s has no audio format", ErrDeviceUnavailable, path)
		case decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32:
			f.Close()
			return nil, xerrors.Newf("%w: %d-bit wav not supported", ErrDeviceUnavailable, decoder.BitDepth)
		}
		return &ReplayDevice{
			file:       f,
			decoder:    decoder,
			sampleRate: int(decoder.SampleRate),
			channels:   int(decoder.NumChans),
			bitDepth:   int(decoder.BitDepth),
			onSamples:  onSamples,
			onStop:     onStop,
			stop:       make(chan struct{}),
			done:       make(chan struct{}),
		}, nil
	}
}

// Start begins the paced read loop.
func (r *ReplayDevice) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return xerrors.New(ErrDeviceUnavailable)
	}
	if !r.started {
		r.started = true
		go r.run()
	}
	return nil
}

// SampleRate returns the file's sample rate.
func (r *ReplayDevice) SampleRate() int {
	return r.sampleRate
}

func (r *ReplayDevice) run() {
	defer close(r.done)

	// pace chunks like a live device would deliver them
	interval := time.Second * time.Duration(ReplayChunkSize) / time.Duration(r.sampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: r.channels, SampleRate: r.sampleRate},
		Data:   make([]int, ReplayChunkSize*r.channels),
	}
	scale := float32(int(1) << (r.bitDepth - 1))

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		n, err := r.decoder.PCMBuffer(buf)
		if err != nil || n == 0 {
			if r.onStop != nil {
				r.onStop(xerrors.New(ErrEndOfInput))
			}
			return
		}

		// first channel only
		frames := n / r.channels
		samples := make([]float32, frames)
		for i := 0; i < frames; i++ {
			samples[i] = float32(buf.Data[i*r.channels]) / scale
		}
		if r.onSamples != nil {
			r.onSamples(samples)
		}
	}
}

// Close stops playback and closes the file. It waits for the read loop, so
// it must not be called from a SampleFunc or StopFunc.
func (r *ReplayDevice) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	close(r.stop)
	r.mu.Unlock()

	if started {
		<-r.done
	}
	return r.file.Close()
}
