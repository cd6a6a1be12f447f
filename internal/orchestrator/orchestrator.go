package orchestrator

import (
	"strconv"

	"github.com/google/uuid"
)

const (
	atNow        = "now"
	atLoopEnd    = "loopEnd"
	atNextMarker = "nextMarker"
)

const (
	busBGM     = "bgm"
	busAmbient = "ambient"
	busSFX     = "sfx"
	busVoice   = "voice"
)

var bgmTrackIDs = []string{"bgm-root1", "bgm-root2", "bgm-root3"}

// voiceDucker are the parameters spec.md §4.2's Init installs on both bgm
// and ambient, keyed on voice.
var voiceDucker = DuckerParams{
	ThresholdDb: -30, Ratio: 6, AttackMs: 15, ReleaseMs: 200, MaxAttenDb: 12, MakeupDb: 0,
}

// AreaVoiceBinding maps a one-shot area ID to the voice asset it plays the
// first time the area is entered. "start"/"goal" are the spec's hard-coded
// defaults; DefaultAreaVoiceBindings ships those two, and
// WithAreaVoiceBindings replaces them with any other list — this
// generalizes what the Rust original hard-coded as two bespoke checks (see
// SPEC_FULL.md §9).
type AreaVoiceBinding struct {
	AreaID  string
	AssetID string
}

// DefaultAreaVoiceBindings reproduces spec.md's literal "start"/"goal"
// behavior.
func DefaultAreaVoiceBindings() []AreaVoiceBinding {
	return []AreaVoiceBinding{
		{AreaID: "start", AssetID: "voice_03_start"},
		{AreaID: "goal", AssetID: "voice_04_goal"},
	}
}

// Orchestrator holds high-level policy state; it never touches audio data.
type Orchestrator struct {
	initialized    bool
	ducking        bool
	lastRoad       string
	haveLastRoad   bool
	areaPlayed     map[string]bool
	activeBGMTrack string
	haveActiveBGM  bool

	areaVoiceBindings []AreaVoiceBinding

	voiceCounter int
	idGen        func() string
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithAreaVoiceBindings overrides the default start/goal one-shot voice
// cues with a manifest-provided list.
func WithAreaVoiceBindings(bindings []AreaVoiceBinding) Option {
	return func(o *Orchestrator) { o.areaVoiceBindings = bindings }
}

// New constructs an Orchestrator in its cold-start state.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		areaPlayed:        make(map[string]bool),
		areaVoiceBindings: DefaultAreaVoiceBindings(),
		idGen:             func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Init installs the four standard buses and the voice-keyed duckers on bgm
// and ambient. Idempotent: subsequent calls return an empty slice.
func (o *Orchestrator) Init() []Command {
	if o.initialized {
		return nil
	}
	o.initialized = true
	cmds := make([]Command, 0, 6)
	for _, bus := range []string{busBGM, busAmbient, busSFX, busVoice} {
		cmds = append(cmds, createBus(bus, -6))
	}
	cmds = append(cmds,
		setDuckerCmd(busBGM, busVoice, voiceDucker),
		setDuckerCmd(busAmbient, busVoice, voiceDucker),
	)
	return cmds
}

// StartBGM creates and seamlessly loops the root BGM asset as bgm-root1.
func (o *Orchestrator) StartBGM() []Command {
	const trackID = "bgm-root1"
	o.activeBGMTrack = trackID
	o.haveActiveBGM = true
	return []Command{
		createTrack(trackID, busBGM, "bgm_01", 0, 0),
		schedulePlay(trackID, seamlessLoop()),
	}
}

// PlayVoice creates a unique track on the voice bus and sets the ducking
// flag. assetID defaults to "voice_03_start" when empty.
func (o *Orchestrator) PlayVoice(assetID string) []Command {
	if assetID == "" {
		assetID = "voice_03_start"
	}
	o.voiceCounter++
	trackID := "voice-" + strconv.Itoa(o.voiceCounter)
	o.ducking = true
	return []Command{
		createTrack(trackID, busVoice, assetID, 0, 0),
		schedulePlay(trackID, LoopSpec{Mode: "none"}),
	}
}

// OnGeoUpdate converts a nearest-road ID and enclosing-area IDs into the
// command sequence that keeps BGM and one-shot voice cues in sync with the
// player's position, per spec.md §4.2's road routing table and area-latch
// rules.
func (o *Orchestrator) OnGeoUpdate(roadID string, areaIDs []string) []Command {
	var cmds []Command

	present := make(map[string]bool, len(areaIDs))
	for _, a := range areaIDs {
		present[a] = true
	}
	for _, b := range o.areaVoiceBindings {
		if present[b.AreaID] && !o.areaPlayed[b.AreaID] {
			cmds = append(cmds, o.PlayVoice(b.AssetID)...)
			o.areaPlayed[b.AreaID] = true
		}
	}

	if roadID != "" && (!o.haveLastRoad || o.lastRoad != roadID) {
		prevRoad := o.lastRoad
		havePrev := o.haveLastRoad

		switch roadID {
		case "root1":
			if havePrev && prevRoad == "root2" && o.haveActiveBGM {
				cmds = append(cmds, transitionCmd(o.activeBGMTrack, atLoopEnd, "bgm_01", seamlessLoop()))
			} else {
				cmds = append(cmds, o.crossfadeTo("bgm-root1", "bgm_01", seamlessLoop(), 300)...)
				o.activeBGMTrack, o.haveActiveBGM = "bgm-root1", true
			}
		case "root2":
			cmds = append(cmds, o.crossfadeTo("bgm-root2", "interactive_01", seamlessLoop(), 200)...)
			o.activeBGMTrack, o.haveActiveBGM = "bgm-root2", true
		case "root3":
			if o.haveActiveBGM {
				cmds = append(cmds, transitionCmd(o.activeBGMTrack, atLoopEnd, "interactive_02", seamlessLoop()))
			} else {
				cmds = append(cmds, o.crossfadeTo("bgm-root3", "interactive_02", seamlessLoop(), 0)...)
				o.activeBGMTrack, o.haveActiveBGM = "bgm-root3", true
			}
		}

		if havePrev && prevRoad == "root3" && roadID != "root3" && o.haveActiveBGM {
			cmds = append(cmds, setLoopCmd(o.activeBGMTrack, noneLoop()))
		}

		o.lastRoad, o.haveLastRoad = roadID, true
	}

	return cmds
}

// crossfadeTo creates a new BGM track at -60dB, schedules seamless play,
// ramps it to 0dB, and ramps every other known bgm-root track down to
// -60dB over fadeMs, per spec.md §4.2.
func (o *Orchestrator) crossfadeTo(trackID, assetID string, loop LoopSpec, fadeMs int) []Command {
	cmds := []Command{
		createTrack(trackID, busBGM, assetID, -60, 0),
		schedulePlay(trackID, loop),
		setGainTrack(trackID, 0, fadeMs),
	}
	for _, other := range bgmTrackIDs {
		if other != trackID {
			cmds = append(cmds, setGainTrack(other, -60, fadeMs))
		}
	}
	return cmds
}

// PlayLoop is a generic seamless-loop creation helper. If trackID is
// empty, a fresh one is generated from bus+a random suffix (the spec does
// not mandate a literal scheme here, unlike PlayVoice's "voice-<n>").
func (o *Orchestrator) PlayLoop(assetID, bus string, loop *LoopSpec, gainDb float64, trackID string) []Command {
	if bus == "" {
		bus = busSFX
	}
	if trackID == "" {
		trackID = bus + "-loop-" + o.idGen()
	}
	l := seamlessLoop()
	if loop != nil {
		l = *loop
	}
	return []Command{
		createTrack(trackID, bus, assetID, gainDb, 0),
		schedulePlay(trackID, l),
	}
}

// SetLoop emits a direct setLoop command.
func (o *Orchestrator) SetLoop(trackID string, loop LoopSpec) []Command {
	return []Command{setLoopCmd(trackID, loop)}
}

// StopTrack emits a direct stop command.
func (o *Orchestrator) StopTrack(trackID string) []Command {
	return []Command{stopTrackCmd(trackID)}
}

// OnEngineMessage handles mixer-to-orchestrator feedback. When a voice
// track ends while ducking is active, it restores bgm/ambient gain over
// 150ms and clears the ducking flag.
func (o *Orchestrator) OnEngineMessage(msg EngineMessage) []Command {
	if msg.Type != "trackEnded" {
		return nil
	}
	if !isVoiceTrack(msg.TrackID) || !o.ducking {
		return nil
	}
	o.ducking = false
	return []Command{
		setGainBus(busBGM, -6, 150),
		setGainBus(busAmbient, -6, 150),
	}
}

// DuckingActive reports whether a voice cue is currently suppressing
// bgm/ambient gain.
func (o *Orchestrator) DuckingActive() bool { return o.ducking }

func isVoiceTrack(trackID string) bool {
	return len(trackID) >= len("voice-") && trackID[:len("voice-")] == "voice-"
}
