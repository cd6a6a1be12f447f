// Package wav renders mixer output to a 32-bit float PCM WAV container, for
// the offline render path of cmd/sampo-play.
package wav

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32LE interleaves outL/outR and wraps them in a WAVE_FORMAT_IEEE_FLOAT
// RIFF container at sampleRate. Panics if outL and outR differ in length.
func EncodeFloat32LE(outL, outR []float32, sampleRate int) []byte {
	if len(outL) != len(outR) {
		panic("wav: outL and outR must have equal length")
	}
	const channels = 2
	frames := len(outL)
	samples := frames * channels
	dataSize := samples * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize

	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3) // WAVE_FORMAT_IEEE_FLOAT
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(out[44+i*8:], math.Float32bits(outL[i]))
		binary.LittleEndian.PutUint32(out[44+i*8+4:], math.Float32bits(outR[i]))
	}
	return out
}
