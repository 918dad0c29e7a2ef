package chordtuner

import (
	"bytes"
	"errors"
	"testing"
)

// MockSerialPort records writes in memory.
type MockSerialPort struct {
	ReadBuffer  *bytes.Buffer
	WriteBuffer *bytes.Buffer
	Closed      bool
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		ReadBuffer:  new(bytes.Buffer),
		WriteBuffer: new(bytes.Buffer),
	}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	return m.ReadBuffer.Read(p)
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	return m.WriteBuffer.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.Closed = true
	return nil
}

func TestMeterSendFrame(t *testing.T) {
	port := NewMockSerialPort()
	client := &MeterClient{conn: port}

	if err := client.SendFrame(0x7A, nil); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}

	expected := []byte{0xFE, 0xFE, 0x7A, 0xFD}
	if !bytes.Equal(port.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected frame %X, got %X", expected, port.WriteBuffer.Bytes())
	}
}

func TestMeterSendChord(t *testing.T) {
	port := NewMockSerialPort()
	client := &MeterClient{conn: port}

	if err := client.SendChord(ChordDetectionResult{Label: "F#m", Confidence: 82}); err != nil {
		t.Fatalf("SendChord failed: %v", err)
	}

	expected := []byte{0xFE, 0xFE, MeterCmdChord, 82, 'F', '#', 'm', 0xFD}
	if !bytes.Equal(port.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected frame %X, got %X", expected, port.WriteBuffer.Bytes())
	}
}

func TestMeterSendNoChord(t *testing.T) {
	port := NewMockSerialPort()
	client := &MeterClient{conn: port}

	if err := client.SendChord(ChordDetectionResult{}); err != nil {
		t.Fatalf("SendChord failed: %v", err)
	}

	expected := []byte{0xFE, 0xFE, MeterCmdChord, 0, 0xFD}
	if !bytes.Equal(port.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected frame %X, got %X", expected, port.WriteBuffer.Bytes())
	}
}

func TestMeterSendReadings(t *testing.T) {
	port := NewMockSerialPort()
	client := &MeterClient{conn: port}

	readings := []PitchReading{
		{Note: "A2", Target: 110, Frequency: 110.1, Cents: 1.6, InTune: true},
		{Note: "E4", Target: 329.63, Frequency: 400, Cents: 335, InTune: false},
	}
	if err := client.SendReadings(readings); err != nil {
		t.Fatalf("SendReadings failed: %v", err)
	}

	expected := []byte{
		0xFE, 0xFE, MeterCmdPitch, 2,
		2, 'A', '2', 2, 1,
		2, 'E', '4', 127, 0,
		0xFD,
	}
	if !bytes.Equal(port.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected frame %X, got %X", expected, port.WriteBuffer.Bytes())
	}
}

func TestMeterCentsClamp(t *testing.T) {
	tests := []struct {
		in   float64
		want int8
	}{
		{0, 0},
		{-4.4, -4},
		{46.4, 46},
		{500, 127},
		{-500, -127},
	}
	for _, tt := range tests {
		if got := meterCents(tt.in); got != tt.want {
			t.Errorf("meterCents(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMeterText(t *testing.T) {
	got := meterText("C\xfe#\x01m")
	if string(got) != "C#m" {
		t.Errorf("Expected C#m, got %q", got)
	}
}

func TestMeterNotOpen(t *testing.T) {
	client := NewMeterClient("/dev/null", 115200)
	err := client.SendChord(ChordDetectionResult{Label: "C", Confidence: 70})
	if !errors.Is(err, ErrMeterClosed) {
		t.Fatalf("Expected ErrMeterClosed, got %v", err)
	}
}

func TestMeterClose(t *testing.T) {
	port := NewMockSerialPort()
	client := &MeterClient{conn: port}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !port.Closed {
		t.Error("Expected port to be closed")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
