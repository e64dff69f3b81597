package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/banshee-data/motionscript/internal/timeutil"
)

func TestButton(t *testing.T) {
	b := ButtonTrigger | ButtonGrip
	assert.True(t, b.Has(ButtonGrip))
	assert.False(t, b.Has(ButtonA))
	assert.False(t, b.Has(0))
	assert.Equal(t, "trigger|grip", b.String())
	assert.Equal(t, "none", Button(0).String())

	for _, name := range []string{"trigger", "A", "b_button", " grip "} {
		_, err := ParseButton(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseButton("menu")
	assert.Error(t, err)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    RawSample
		wantErr bool
	}{
		{
			name: "eight fields",
			line: "0.1 0.75 -0.2 10 -20 30 1 5",
			want: RawSample{Position: [3]float64{0.1, 0.75, -0.2}, Rotation: [3]float64{10, -20, 30}, Tracked: true, Buttons: ButtonTrigger | ButtonB},
		},
		{
			name: "commas and thumbstick",
			line: "0,1,0,0,0,0,0,0,0.5,-1",
			want: RawSample{Position: [3]float64{0, 1, 0}, Thumbstick: [2]float64{0.5, -1}},
		},
		{name: "too few", line: "1 2 3", wantErr: true},
		{name: "bad number", line: "x 0 0 0 0 0 1 0", wantErr: true},
		{name: "bad tracked flag", line: "0 0 0 0 0 0 yes 0", wantErr: true},
		{name: "bad buttons", line: "0 0 0 0 0 0 1 300", wantErr: true},
		{name: "bad thumbstick", line: "0 0 0 0 0 0 1 0 a b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_Mode(t *testing.T) {
	m, err := PortOptions{}.Mode()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaudRate, m.BaudRate)
	assert.Equal(t, 8, m.DataBits)
	assert.Equal(t, serial.NoParity, m.Parity)
	assert.Equal(t, serial.OneStopBit, m.StopBits)

	m, err = PortOptions{BaudRate: 9600, Parity: "even", StopBits: 2}.Mode()
	require.NoError(t, err)
	assert.Equal(t, serial.EvenParity, m.Parity)
	assert.Equal(t, serial.TwoStopBits, m.StopBits)

	for _, bad := range []PortOptions{{DataBits: 9}, {StopBits: 3}, {Parity: "mark"}} {
		_, err := bad.Mode()
		assert.Error(t, err, "%+v", bad)
	}
}

func TestSerialSource(t *testing.T) {
	ctx := context.Background()
	pr, pw := io.Pipe()
	src := NewSerialSource(pr)

	_, err := src.Read(ctx)
	assert.ErrorIs(t, err, ErrNotTracked)

	go func() {
		fmt.Fprintln(pw, "# bridge v1")
		fmt.Fprintln(pw, "garbage")
		fmt.Fprintln(pw, "0.1 0.75 0 0 0 0 1 1")
	}()
	require.Eventually(t, func() bool {
		_, err := src.Read(ctx)
		return err == nil
	}, time.Second, time.Millisecond)
	s, err := src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.75, s.Position[1])
	assert.Equal(t, ButtonTrigger, s.Buttons)

	require.NoError(t, pw.Close())
	require.Eventually(t, func() bool {
		_, err := src.Read(ctx)
		return err != nil && !errors.Is(err, ErrNotTracked)
	}, time.Second, time.Millisecond)
	_, err = src.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestMQTTSource_Ingest(t *testing.T) {
	ctx := context.Background()
	s := &MQTTSource{topic: DefaultMQTTTopic}

	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, ErrNotTracked)

	require.NoError(t, s.ingest([]byte(`{"position":[0,1,0],"rotation":[5,0,0],"tracked":true,"buttons":2}`)))
	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.True(t, got.Tracked)
	assert.Equal(t, 1.0, got.Position[1])
	assert.Equal(t, ButtonA, got.Buttons)

	assert.Error(t, s.ingest([]byte("not json")))
	got, _ = s.Read(ctx)
	assert.Equal(t, 5.0, got.Rotation[0], "a bad message keeps the previous sample")
	assert.NoError(t, s.Close())
}

func TestSineSource(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	src := NewSineSource(clock)
	for i := 0; i < 20; i++ {
		s, err := src.Read(context.Background())
		require.NoError(t, err)
		assert.True(t, s.Tracked)
		assert.InDelta(t, 0.75, s.Position[1], 0.4+1e-9)
		clock.Advance(137 * time.Millisecond)
	}
	assert.NoError(t, src.Close())
}

func TestScriptedSource(t *testing.T) {
	ctx := context.Background()
	src := NewScriptedSource(still(0.1, 0), still(0.2, 0))
	for _, want := range []float64{0.1, 0.2, 0.2} {
		s, err := src.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, s.Position[1])
	}
	src.Push(still(0.3, 0))
	s, _ := src.Read(ctx)
	assert.Equal(t, 0.3, s.Position[1])
}
