package tracking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/banshee-data/motionscript/internal/monitoring"
)

// PortOptions describes the serial link to a tracker bridge.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// DefaultBaudRate is used when PortOptions.BaudRate is unset.
const DefaultBaudRate = 115200

// Mode validates o and converts it for go.bug.st/serial, filling defaults
// of 8N1 at DefaultBaudRate.
func (o PortOptions) Mode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: o.BaudRate, DataBits: o.DataBits}
	if mode.BaudRate <= 0 {
		mode.BaudRate = DefaultBaudRate
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits %d: must be between 5 and 8", mode.DataBits)
	}

	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	switch strings.ToUpper(strings.TrimSpace(o.Parity)) {
	case "", "N", "NONE":
		mode.Parity = serial.NoParity
	case "E", "EVEN":
		mode.Parity = serial.EvenParity
	case "O", "ODD":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return mode, nil
}

// ParseLine decodes one line of the bridge protocol:
//
//	x y z pitch yaw roll tracked buttons [stick_x stick_y]
//
// Fields are separated by spaces or commas. tracked is 0 or 1 and buttons
// is the Button bitmask in decimal.
func ParseLine(line string) (RawSample, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	if len(fields) != 8 && len(fields) != 10 {
		return RawSample{}, fmt.Errorf("parse line: want 8 or 10 fields, got %d", len(fields))
	}
	var s RawSample
	var vals [6]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return RawSample{}, fmt.Errorf("parse line: field %d: %w", i, err)
		}
		vals[i] = v
	}
	copy(s.Position[:], vals[:3])
	copy(s.Rotation[:], vals[3:])

	switch fields[6] {
	case "0":
	case "1":
		s.Tracked = true
	default:
		return RawSample{}, fmt.Errorf("parse line: tracked flag %q", fields[6])
	}
	b, err := strconv.ParseUint(fields[7], 10, 8)
	if err != nil {
		return RawSample{}, fmt.Errorf("parse line: buttons: %w", err)
	}
	s.Buttons = Button(b)

	if len(fields) == 10 {
		for i := range s.Thumbstick {
			v, err := strconv.ParseFloat(fields[8+i], 64)
			if err != nil {
				return RawSample{}, fmt.Errorf("parse line: thumbstick: %w", err)
			}
			s.Thumbstick[i] = v
		}
	}
	return s, nil
}

// SerialSource reads bridge lines from a port on a background goroutine
// and serves the most recent good sample.
type SerialSource struct {
	port io.ReadCloser
	last latest
	done chan struct{}
}

// OpenSerial opens path and starts reading.
func OpenSerial(path string, opts PortOptions) (*SerialSource, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	monitoring.Opsf("tracking: reading %s at %d baud", path, mode.BaudRate)
	return NewSerialSource(port), nil
}

// NewSerialSource starts reading lines from port, which it takes ownership
// of.
func NewSerialSource(port io.ReadCloser) *SerialSource {
	s := &SerialSource{port: port, done: make(chan struct{})}
	go s.monitor()
	return s
}

func (s *SerialSource) monitor() {
	defer close(s.done)
	scan := bufio.NewScanner(s.port)
	bad := 0
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sample, err := ParseLine(line)
		if err != nil {
			bad++
			monitoring.Tracef("tracking: serial: %v", err)
			continue
		}
		s.last.set(sample)
	}
	err := scan.Err()
	if err == nil {
		err = io.EOF
	}
	if bad > 0 {
		monitoring.Diagf("tracking: serial reader stopped after %d malformed lines: %v", bad, err)
	}
	s.last.fail(fmt.Errorf("serial reader: %w", err))
}

func (s *SerialSource) Read(context.Context) (RawSample, error) {
	return s.last.get()
}

// Close closes the port and waits for the reader to exit.
func (s *SerialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}
