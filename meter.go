package chordtuner

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/tarm/serial"
)

// Meter frame bytes.
const (
	MeterPreamble = 0xFE
	MeterEnd      = 0xFD

	MeterCmdChord = 0x01
	MeterCmdPitch = 0x02
)

// maxMeterName bounds label and note names on the wire.
const maxMeterName = 16

// SerialPort is the part of a serial connection the meter needs. Tests
// substitute an in-memory port.
type SerialPort interface {
	io.ReadWriteCloser
}

// MeterClient drives an external display over a serial line. Frames look
// like FE FE <cmd> <payload...> FD.
type MeterClient struct {
	Port     string
	BaudRate int

	mu   sync.Mutex
	conn SerialPort
}

// NewMeterClient creates a client for port. Call Open before sending.
func NewMeterClient(port string, baudRate int) *MeterClient {
	return &MeterClient{
		Port:     port,
		BaudRate: baudRate,
	}
}

// Open opens the serial port.
func (m *MeterClient) Open() error {
	s, err := serial.OpenPort(&serial.Config{
		Name:        m.Port,
		Baud:        m.BaudRate,
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return xerrors.New("open meter port "+m.Port, err)
	}
	m.mu.Lock()
	m.conn = s
	m.mu.Unlock()
	return nil
}

// Close closes the port. Closing an unopened client is a no-op.
func (m *MeterClient) Close() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// SendFrame writes one framed command.
func (m *MeterClient) SendFrame(cmd byte, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return xerrors.New(ErrMeterClosed)
	}
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, MeterPreamble, MeterPreamble, cmd)
	frame = append(frame, payload...)
	frame = append(frame, MeterEnd)

	if _, err := m.conn.Write(frame); err != nil {
		return xerrors.New("meter write", err)
	}
	return nil
}

// SendChord shows a chord label and its confidence. "No chord" is sent as
// an empty label with confidence 0.
func (m *MeterClient) SendChord(r ChordDetectionResult) error {
	label := meterText(r.Label)
	payload := make([]byte, 0, len(label)+1)
	payload = append(payload, byte(r.Confidence))
	payload = append(payload, label...)
	return m.SendFrame(MeterCmdChord, payload)
}

// SendReadings shows tuner readings, one needle per string.
func (m *MeterClient) SendReadings(readings []PitchReading) error {
	if len(readings) > 255 {
		readings = readings[:255]
	}
	payload := []byte{byte(len(readings))}
	for _, r := range readings {
		name := meterText(r.Note)
		payload = append(payload, byte(len(name)))
		payload = append(payload, name...)
		payload = append(payload, byte(meterCents(r.Cents)))
		if r.InTune {
			payload = append(payload, 1)
		} else {
			payload = append(payload, 0)
		}
	}
	return m.SendFrame(MeterCmdPitch, payload)
}

// meterText keeps printable ASCII only. Framing bytes never appear in the
// payload text because they are outside that range.
func meterText(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s) && len(out) < maxMeterName; i++ {
		if c := s[i]; c >= 0x20 && c < 0x7F {
			out = append(out, c)
		}
	}
	return out
}

func meterCents(c float64) int8 {
	r := math.Round(c)
	if r > 127 {
		r = 127
	}
	if r < -127 {
		r = -127
	}
	return int8(r)
}
