package chordtuner

import (
	"strings"
	"sync"
	"unsafe"

	"chordtuner/logging"

	"github.com/gen2brain/malgo"
	"github.com/mdobak/go-xerrors"
)

// AudioCapture is a microphone device backed by miniaudio.
type AudioCapture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu      sync.Mutex
	closing bool
	onStop  StopFunc
}

// OpenAudioCapture is the DeviceOpener for live input.
func OpenAudioCapture(req DeviceRequest, onSamples SampleFunc, onStop StopFunc) (Device, error) {
	log := req.Logger
	if log == nil {
		log = logging.GetGlobalLogger()
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("malgo", logging.Fields{"message": strings.TrimSpace(message)})
	})
	if err != nil {
		return nil, classifyDeviceError(err)
	}

	ac := &AudioCapture{ctx: ctx, onStop: onStop}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		ac.release()
		return nil, classifyDeviceError(err)
	}
	if len(infos) == 0 {
		ac.release()
		return nil, xerrors.New(ErrDeviceUnavailable)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(req.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if req.DeviceName != "" {
		matched := false
		for _, info := range infos {
			if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(req.DeviceName)) {
				deviceConfig.Capture.DeviceID = info.ID.Pointer()
				log.Info("selected input device", logging.Fields{"device": info.Name()})
				matched = true
				break
			}
		}
		if !matched {
			log.Warn("input device not found, using default", logging.Fields{"device": req.DeviceName})
		}
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if onSamples == nil || len(pInputSamples) == 0 {
			return
		}
		samples := unsafe.Slice((*float32)(unsafe.Pointer(&pInputSamples[0])), int(framecount))
		onSamples(samples)
	}

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: onRecvFrames,
		Stop: ac.handleStop,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		ac.release()
		return nil, classifyDeviceError(err)
	}
	ac.device = device

	log.Debug("audio device initialized", logging.Fields{"sample_rate": device.SampleRate()})

	return ac, nil
}

// handleStop runs when miniaudio stops the device, including after our own
// Close; only the unrequested case is reported.
func (ac *AudioCapture) handleStop() {
	ac.mu.Lock()
	closing := ac.closing
	ac.mu.Unlock()
	if !closing && ac.onStop != nil {
		ac.onStop(xerrors.New(ErrCaptureInterrupted))
	}
}

// Start starts capturing.
func (ac *AudioCapture) Start() error {
	if ac.device == nil {
		return xerrors.New(ErrDeviceUnavailable)
	}
	if err := ac.device.Start(); err != nil {
		return classifyDeviceError(err)
	}
	return nil
}

// SampleRate returns the negotiated rate.
func (ac *AudioCapture) SampleRate() int {
	if ac.device == nil {
		return 0
	}
	return int(ac.device.SampleRate())
}

// Close stops capture and releases the device and context.
func (ac *AudioCapture) Close() error {
	ac.mu.Lock()
	ac.closing = true
	ac.mu.Unlock()
	ac.release()
	return nil
}

func (ac *AudioCapture) release() {
	if ac.device != nil {
		ac.device.Uninit()
		ac.device = nil
	}
	if ac.ctx != nil {
		_ = ac.ctx.Uninit()
		ac.ctx.Free()
		ac.ctx = nil
	}
}

// InputDevice describes a capture device.
type InputDevice struct {
	Name    string
	Default bool
}

// ListInputDevices enumerates capture devices.
func ListInputDevices() ([]InputDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, classifyDeviceError(err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, classifyDeviceError(err)
	}
	devices := make([]InputDevice, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, InputDevice{
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return devices, nil
}
