package audioio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	l, r []float32
}

func (s *stubRenderer) ProcessInto(outL, outR []float32) int {
	n := copy(outL, s.l)
	copy(outR, s.r)
	return n
}

func TestStreamReaderEncodesInterleavedFloat32LE(t *testing.T) {
	r := NewStreamReader(&stubRenderer{l: []float32{0.5, -0.25}, r: []float32{1, -1}})
	buf := make([]byte, 8*4) // room for 4 frames * 8 bytes/frame, but exercise only 2 frames
	buf = buf[:16]
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 16, n)

	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
	assert.Equal(t, float32(-0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12])))
	assert.Equal(t, float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16])))
}

func TestStreamReaderZeroFrameRequestIsNoop(t *testing.T) {
	r := NewStreamReader(&stubRenderer{})
	n, err := r.Read(make([]byte, 3))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
