// Package orchestrator translates geo-update and engine events into an
// ordered command sequence the mixer executes. It is stateless with
// respect to actual audio data — only high-level bookkeeping (active BGM
// track, voice-ducking flag, last-known road/area) lives here.
package orchestrator

// LoopSpec mirrors the wire schema's loop descriptor. End is nil for
// "end of asset" (the wire form's null/-1).
type LoopSpec struct {
	Mode        string `json:"mode"`
	Start       int    `json:"start"`
	End         *int   `json:"end"`
	CrossfadeMs int    `json:"crossfadeMs,omitempty"`
}

func seamlessLoop() LoopSpec { return LoopSpec{Mode: "seamless", Start: 0, End: nil} }
func noneLoop() LoopSpec     { return LoopSpec{Mode: "none", Start: 0, End: nil} }

// TrackOptions carries createTrack's per-track options.
type TrackOptions struct {
	GainDb float64 `json:"gainDb"`
	Pan    float64 `json:"pan"`
}

// BusOptions carries createBus's per-bus options.
type BusOptions struct {
	GainDb float64 `json:"gainDb"`
}

// DuckerParams mirrors setDucker's wire params object.
type DuckerParams struct {
	ThresholdDb float64 `json:"thresholdDb"`
	Ratio       float64 `json:"ratio"`
	AttackMs    float64 `json:"attackMs"`
	ReleaseMs   float64 `json:"releaseMs"`
	MaxAttenDb  float64 `json:"maxAttenDb"`
	MakeupDb    float64 `json:"makeupDb"`
}

// Command is a flat, JSON-tagged struct mirroring the external command
// schema of spec.md §6 exactly — one struct type, fields populated per
// Type, the same flat-tagged-union style the teacher uses for mml.Event.
type Command struct {
	Type string `json:"type"`

	BusID   string `json:"busId,omitempty"`
	TrackID string `json:"trackId,omitempty"`
	AssetID string `json:"assetId,omitempty"`

	// Options holds *TrackOptions for createTrack/createTrackBus or
	// *BusOptions for createBus; both marshal under the same wire key.
	Options interface{} `json:"options,omitempty"`

	Loop *LoopSpec `json:"loop,omitempty"`

	OffsetSamples *int `json:"offsetSamples,omitempty"`

	At        string `json:"at,omitempty"`
	ToAssetID string `json:"toAssetId,omitempty"`

	Scope  string  `json:"scope,omitempty"`
	ID     string  `json:"id,omitempty"`
	GainDb float64 `json:"gainDb,omitempty"`
	RampMs int     `json:"rampMs,omitempty"`

	TargetBusID string        `json:"targetBusId,omitempty"`
	KeyBusID    string        `json:"keyBusId,omitempty"`
	Params      *DuckerParams `json:"params,omitempty"`
}

func createBus(busID string, gainDb float64) Command {
	return Command{Type: "createBus", BusID: busID, Options: &BusOptions{GainDb: gainDb}}
}

func createTrack(trackID, busID, assetID string, gainDb, pan float64) Command {
	return Command{
		Type: "createTrack", TrackID: trackID, BusID: busID, AssetID: assetID,
		Options: &TrackOptions{GainDb: gainDb, Pan: pan},
	}
}

func schedulePlay(trackID string, loop LoopSpec) Command {
	l := loop
	return Command{Type: "schedulePlay", TrackID: trackID, Loop: &l}
}

func setLoopCmd(trackID string, loop LoopSpec) Command {
	l := loop
	return Command{Type: "setLoop", TrackID: trackID, Loop: &l}
}

func transitionCmd(trackID, at, toAssetID string, loop LoopSpec) Command {
	l := loop
	return Command{Type: "transition", TrackID: trackID, At: at, ToAssetID: toAssetID, Loop: &l}
}

func setGainTrack(trackID string, gainDb float64, rampMs int) Command {
	return Command{Type: "setGain", Scope: "track", ID: trackID, GainDb: gainDb, RampMs: rampMs}
}

func setGainBus(busID string, gainDb float64, rampMs int) Command {
	return Command{Type: "setGain", Scope: "bus", ID: busID, GainDb: gainDb, RampMs: rampMs}
}

func setDuckerCmd(targetBusID, keyBusID string, p DuckerParams) Command {
	pp := p
	return Command{Type: "setDucker", TargetBusID: targetBusID, KeyBusID: keyBusID, Params: &pp}
}

func stopTrackCmd(trackID string) Command {
	return Command{Type: "stop", TrackID: trackID}
}

// EngineMessage is the mixer-to-orchestrator feedback schema (trackEnded).
type EngineMessage struct {
	Type    string `json:"type"`
	TrackID string `json:"trackId"`
}
