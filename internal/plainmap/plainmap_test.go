package plainmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderFromJSON(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"on":true,"rate":2.5,"n":4,"beats":[0,500,1000]}`), &m))

	var (
		on    bool
		rate  float64
		n     int
		beats []int
	)
	r := NewReader(m)
	r.Bool("on", &on)
	r.Float("rate", &rate)
	r.Int("n", &n)
	r.Ints("beats", &beats)
	r.Float("missing", &rate)
	require.NoError(t, r.Err())

	assert.True(t, on)
	assert.Equal(t, 2.5, rate)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{0, 500, 1000}, beats)
	assert.True(t, r.Has("n"))
	assert.False(t, r.Has("missing"))
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
		read func(r *Reader)
	}{
		{"bool as string", map[string]any{"k": "yes"}, func(r *Reader) { var b bool; r.Bool("k", &b) }},
		{"float as string", map[string]any{"k": "1.0"}, func(r *Reader) { var f float64; r.Float("k", &f) }},
		{"fractional int", map[string]any{"k": 1.5}, func(r *Reader) { var i int; r.Int("k", &i) }},
		{"list of strings", map[string]any{"k": []any{"a"}}, func(r *Reader) { var s []int; r.Ints("k", &s) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.m)
			tt.read(r)
			assert.Error(t, r.Err())
		})
	}
}

func TestToInt(t *testing.T) {
	for _, v := range []any{3, int64(3), int32(3), 3.0, float32(3)} {
		got, err := ToInt(v)
		require.NoError(t, err)
		assert.Equal(t, 3, got)
	}
	_, err := ToInt("3")
	assert.Error(t, err)
}
