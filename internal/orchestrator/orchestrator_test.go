package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitEmitsBusesAndDuckersOnce(t *testing.T) {
	o := New()
	cmds := o.Init()
	require.Len(t, cmds, 6)
	for i, bus := range []string{"bgm", "ambient", "sfx", "voice"} {
		assert.Equal(t, "createBus", cmds[i].Type)
		assert.Equal(t, bus, cmds[i].BusID)
	}
	assert.Equal(t, "setDucker", cmds[4].Type)
	assert.Equal(t, "bgm", cmds[4].TargetBusID)
	assert.Equal(t, "setDucker", cmds[5].Type)
	assert.Equal(t, "ambient", cmds[5].TargetBusID)

	assert.Empty(t, o.Init())
}

func TestOnGeoUpdateColdStartCrossfadesAndLatchesRoad(t *testing.T) {
	o := New()
	o.Init()
	cmds := o.OnGeoUpdate("root1", nil)
	require.Len(t, cmds, 5)
	assert.Equal(t, "createTrack", cmds[0].Type)
	assert.Equal(t, "bgm-root1", cmds[0].TrackID)
	assert.Equal(t, "schedulePlay", cmds[1].Type)
	assert.Equal(t, "setGain", cmds[2].Type)
	assert.Equal(t, "bgm-root1", cmds[2].ID)
	assert.Equal(t, 0.0, cmds[2].GainDb)
	// Silencing the two other known root tracks.
	assert.Equal(t, "setGain", cmds[3].Type)
	assert.Equal(t, -60.0, cmds[3].GainDb)
	assert.Equal(t, "setGain", cmds[4].Type)
	assert.Equal(t, -60.0, cmds[4].GainDb)

	// Repeating the same road emits nothing.
	assert.Empty(t, o.OnGeoUpdate("root1", nil))
}

func TestOnGeoUpdateAreaStartPlaysVoiceOnceAndDucks(t *testing.T) {
	o := New()
	o.Init()
	cmds := o.OnGeoUpdate("", []string{"start"})
	require.Len(t, cmds, 2)
	assert.Equal(t, "createTrack", cmds[0].Type)
	assert.Equal(t, "voice", cmds[0].BusID)
	assert.Equal(t, "voice_03_start", cmds[0].AssetID)
	assert.Equal(t, "schedulePlay", cmds[1].Type)
	assert.True(t, o.ducking)

	// Re-entering the same area plays nothing further.
	assert.Empty(t, o.OnGeoUpdate("", []string{"start"}))
}

func TestOnEngineMessageRestoresGainAfterVoiceEnds(t *testing.T) {
	o := New()
	o.Init()
	cmds := o.OnGeoUpdate("", []string{"start"})
	trackID := cmds[0].TrackID

	restore := o.OnEngineMessage(EngineMessage{Type: "trackEnded", TrackID: trackID})
	require.Len(t, restore, 2)
	assert.Equal(t, "setGain", restore[0].Type)
	assert.Equal(t, "bus", restore[0].Scope)
	assert.Equal(t, "bgm", restore[0].ID)
	assert.Equal(t, -6.0, restore[0].GainDb)
	assert.Equal(t, 150, restore[0].RampMs)
	assert.Equal(t, "ambient", restore[1].ID)
	assert.False(t, o.ducking)

	// Another trackEnded with ducking already cleared emits nothing.
	assert.Empty(t, o.OnEngineMessage(EngineMessage{Type: "trackEnded", TrackID: trackID}))
}

func TestOnEngineMessageIgnoresNonVoiceTracks(t *testing.T) {
	o := New()
	o.ducking = true
	assert.Empty(t, o.OnEngineMessage(EngineMessage{Type: "trackEnded", TrackID: "bgm-root1"}))
	assert.True(t, o.ducking)
}

func TestRoad2ThenRoad1TransitionsAtLoopEnd(t *testing.T) {
	o := New()
	o.Init()
	o.OnGeoUpdate("root2", nil)
	cmds := o.OnGeoUpdate("root1", nil)
	require.Len(t, cmds, 1)
	assert.Equal(t, "transition", cmds[0].Type)
	assert.Equal(t, atLoopEnd, cmds[0].At)
	assert.Equal(t, "bgm_01", cmds[0].ToAssetID)
}

func TestRoad3ExitClearsLoopOnActiveTrack(t *testing.T) {
	o := New()
	o.Init()
	o.OnGeoUpdate("root3", nil)
	cmds := o.OnGeoUpdate("root2", nil)
	last := cmds[len(cmds)-1]
	assert.Equal(t, "setLoop", last.Type)
	assert.Equal(t, "none", last.Loop.Mode)
}

func TestPlayLoopGeneratesTrackIDWhenEmpty(t *testing.T) {
	o := New()
	cmds := o.PlayLoop("ambient_wind", "ambient", nil, -10, "")
	require.Len(t, cmds, 2)
	assert.Equal(t, "ambient", cmds[0].BusID)
	assert.NotEmpty(t, cmds[0].TrackID)
}

func TestStopTrackAndSetLoopHelpers(t *testing.T) {
	o := New()
	assert.Equal(t, "stop", o.StopTrack("t")[0].Type)
	assert.Equal(t, "setLoop", o.SetLoop("t", LoopSpec{Mode: "none"})[0].Type)
}

func TestWithAreaVoiceBindingsOverridesDefault(t *testing.T) {
	o := New(WithAreaVoiceBindings([]AreaVoiceBinding{{AreaID: "checkpoint1", AssetID: "voice_cp1"}}))
	assert.Empty(t, o.OnGeoUpdate("", []string{"start"}))
	cmds := o.OnGeoUpdate("", []string{"checkpoint1"})
	require.Len(t, cmds, 2)
	assert.Equal(t, "voice_cp1", cmds[0].AssetID)
}
