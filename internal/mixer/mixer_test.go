package mixer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/sampo-engine/internal/ducker"
	"github.com/cbegin/sampo-engine/internal/track"
)

const sqrtHalf = 0.7071067811865476

func TestSilenceWhenIdle(t *testing.T) {
	m := New(48000)
	outL := make([]float32, 8)
	outR := make([]float32, 8)
	n := m.ProcessInto(outL, outR)
	require.Equal(t, 8, n)
	for i := 0; i < 8; i++ {
		assert.Equal(t, float32(0), outL[i])
		assert.Equal(t, float32(0), outR[i])
	}
}

func TestScenario1NonLoopingStops(t *testing.T) {
	m := New(48000)
	require.True(t, m.RegisterAsset("A", 48000, [][]float32{{0.25, 0.5, 0.25, 0.0}}))
	require.True(t, m.CreateTrack("t", "A", 0, 0))
	require.True(t, m.SchedulePlay("t", 0, track.Config{Mode: track.LoopNone}))

	outL := make([]float32, 4)
	outR := make([]float32, 4)
	n := m.ProcessInto(outL, outR)
	require.Equal(t, 4, n)
	want := []float32{0.25, 0.5, 0.25, 0.0}
	for i := range want {
		assert.InDelta(t, want[i]*sqrtHalf, outL[i], 1e-6)
		assert.InDelta(t, want[i]*sqrtHalf, outR[i], 1e-6)
	}

	outL2 := make([]float32, 4)
	outR2 := make([]float32, 4)
	m.ProcessInto(outL2, outR2)
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(0), outL2[i])
	}
}

func TestScenario5DuckerAttenuation(t *testing.T) {
	m := New(48000)
	require.True(t, m.RegisterAsset("voiceAsset", 48000, [][]float32{fill(100000, 1.0)}))
	require.True(t, m.RegisterAsset("bgmConst", 48000, [][]float32{fill(100000, 1.0)}))

	require.True(t, m.CreateTrackBus("bgm-t", "bgm", "bgmConst", 0, 0))
	require.True(t, m.SchedulePlay("bgm-t", 0, track.Config{Mode: track.LoopNone}))
	require.True(t, m.CreateTrackBus("voice-t", "voice", "voiceAsset", 0, 0))
	require.True(t, m.SchedulePlay("voice-t", 0, track.Config{Mode: track.LoopNone}))

	m.SetDucker("bgm", "voice", 48000, ducker.Params{
		ThresholdDb: -30, Ratio: 6, AttackMs: 15, ReleaseMs: 200, MaxAttenDb: 12, MakeupDb: 0,
	})

	outL := make([]float32, 48000)
	outR := make([]float32, 48000)
	m.ProcessInto(outL, outR)

	// After attack settles, near the end of this 1s block bgm should be
	// attenuated close to 12dB relative to its unducked sqrt(1/2) level.
	tail := outL[len(outL)-100:]
	var maxAbs float32
	for _, v := range tail {
		if v < 0 {
			v = -v
		}
		if v > maxAbs {
			maxAbs = v
		}
	}
	unduckedLevel := sqrtHalf
	attenDb := -20 * math.Log10(float64(maxAbs)/unduckedLevel)
	assert.InDelta(t, 12, attenDb, 1.5)
}

func TestAtMostOnePendingSwitchLoopEnd(t *testing.T) {
	m := New(48000)
	require.True(t, m.RegisterAsset("old", 48000, [][]float32{{1, 1, 1, 1}}))
	require.True(t, m.RegisterAsset("mid", 48000, [][]float32{{2, 2, 2, 2}}))
	require.True(t, m.RegisterAsset("final", 48000, [][]float32{{3, 3, 3, 3}}))

	end := 4
	require.True(t, m.CreateTrack("t", "old", 0, 0))
	require.True(t, m.SchedulePlay("t", 0, track.Config{Mode: track.LoopSeamless, Start: 0, End: &end}))

	require.True(t, m.Transition("t", TransitionLoopEnd, "mid", track.Config{Mode: track.LoopSeamless, Start: 0, End: nil}))
	require.True(t, m.Transition("t", TransitionLoopEnd, "final", track.Config{Mode: track.LoopSeamless, Start: 0, End: nil}))

	outL := make([]float32, 10)
	outR := make([]float32, 10)
	m.ProcessInto(outL, outR)

	// After the loop boundary (4 frames in), samples should come from
	// "final" (value 3 * sqrt(1/2)), never "mid" (value 2 * sqrt(1/2)).
	for i := 5; i < 10; i++ {
		assert.InDelta(t, 3*sqrtHalf, outL[i], 1e-5, "frame %d", i)
	}
}

func TestDuckerIdempotenceOnTarget(t *testing.T) {
	m := New(48000)
	m.SetDucker("bgm", "voice", 48000, ducker.Params{ThresholdDb: -30, Ratio: 4, AttackMs: 10, ReleaseMs: 100, MaxAttenDb: 10, MakeupDb: 0})
	m.SetDucker("bgm", "voice", 48000, ducker.Params{ThresholdDb: -20, Ratio: 8, AttackMs: 5, ReleaseMs: 50, MaxAttenDb: 6, MakeupDb: 0})
	assert.Len(t, m.duckersByTarget, 1)
}

func TestUnknownAssetRejected(t *testing.T) {
	m := New(48000)
	assert.False(t, m.CreateTrack("t", "missing", 0, 0))
}

func TestRegisterAssetEmptyChannelsRejected(t *testing.T) {
	m := New(48000)
	assert.False(t, m.RegisterAsset("x", 48000, nil))
}

func fill(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
