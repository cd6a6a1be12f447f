// Package sampo is the real-time audio mixing engine for an interactive,
// location-triggered game soundtrack: a sample-accurate Mixer driven by an
// Orchestrator that turns geo updates into bus/track/ducker commands.
package sampo

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/cbegin/sampo-engine/internal/ducker"
	"github.com/cbegin/sampo-engine/internal/mixer"
	"github.com/cbegin/sampo-engine/internal/orchestrator"
	"github.com/cbegin/sampo-engine/internal/track"
)

// Engine wires the Mixer and Orchestrator together: geo updates go in,
// Orchestrator-issued Commands are applied to the Mixer, and the Mixer's
// trackEnded events are fed back to the Orchestrator so ducking recovers.
type Engine struct {
	Mixer *mixer.Mixer
	Orch  *orchestrator.Orchestrator
	log   *log.Logger
}

// New constructs an Engine at sampleRate, logging through logger (nil uses
// charmbracelet/log's default).
func New(sampleRate float64, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		Mixer: mixer.New(sampleRate),
		Orch:  orchestrator.New(),
		log:   logger,
	}
	e.Apply(e.Orch.Init()...)
	return e
}

// RegisterAsset loads a decoded PCM asset into the mixer under id.
func (e *Engine) RegisterAsset(id string, sampleRate float64, channels [][]float32) bool {
	return e.Mixer.RegisterAsset(id, sampleRate, channels)
}

// StartBGM begins the root background loop.
func (e *Engine) StartBGM() { e.Apply(e.Orch.StartBGM()...) }

// OnGeoUpdate feeds a road/area observation to the orchestrator and applies
// whatever commands it issues.
func (e *Engine) OnGeoUpdate(roadID string, areaIDs []string) {
	e.Apply(e.Orch.OnGeoUpdate(roadID, areaIDs)...)
}

// DrainEvents applies any pending mixer events to the orchestrator,
// forwarding the resulting commands back onto the mixer. Call this once per
// host tick; it never blocks.
func (e *Engine) DrainEvents() {
	for {
		select {
		case ev := <-e.Mixer.Events():
			switch ev.Kind {
			case mixer.EventTrackEnded:
				e.Apply(e.Orch.OnEngineMessage(orchestrator.EngineMessage{Type: "trackEnded", TrackID: ev.TrackID})...)
			}
		default:
			return
		}
	}
}

// ProcessInto renders the next audio block, draining orchestrator feedback
// first so gain-restoration commands land before the block that needs them.
func (e *Engine) ProcessInto(outL, outR []float32) int {
	e.DrainEvents()
	return e.Mixer.ProcessInto(outL, outR)
}

// Apply executes a sequence of orchestrator commands against the mixer.
func (e *Engine) Apply(cmds ...orchestrator.Command) {
	for _, c := range cmds {
		if err := e.execute(c); err != nil {
			e.log.Warn("command failed", "type", c.Type, "trackId", c.TrackID, "busId", c.BusID, "err", err)
		}
	}
}

func (e *Engine) execute(c orchestrator.Command) error {
	switch c.Type {
	case "createBus":
		opts, _ := c.Options.(*orchestrator.BusOptions)
		gainDb := 0.0
		if opts != nil {
			gainDb = opts.GainDb
		}
		e.Mixer.CreateBus(c.BusID, gainDb)
		return nil

	case "createTrack":
		opts, _ := c.Options.(*orchestrator.TrackOptions)
		gainDb, pan := 0.0, 0.0
		if opts != nil {
			gainDb, pan = opts.GainDb, opts.Pan
		}
		if !e.Mixer.CreateTrackBus(c.TrackID, c.BusID, c.AssetID, pan, gainDb) {
			return fmt.Errorf("unknown asset %q", c.AssetID)
		}
		return nil

	case "schedulePlay":
		offset := 0
		if c.OffsetSamples != nil {
			offset = *c.OffsetSamples
		}
		if !e.Mixer.SchedulePlay(c.TrackID, offset, e.loopConfigFromSpec(c.Loop)) {
			return fmt.Errorf("unknown track %q", c.TrackID)
		}
		return nil

	case "setLoop":
		if !e.Mixer.SetLoop(c.TrackID, e.loopConfigFromSpec(c.Loop)) {
			return fmt.Errorf("unknown track %q", c.TrackID)
		}
		return nil

	case "transition":
		if !e.Mixer.Transition(c.TrackID, transitionAtFromSpec(c.At), c.ToAssetID, e.loopConfigFromSpec(c.Loop)) {
			return fmt.Errorf("unknown track or asset for transition on %q", c.TrackID)
		}
		return nil

	case "setGain":
		switch c.Scope {
		case "bus":
			e.Mixer.SetGainBus(c.ID, c.GainDb, c.RampMs)
		default:
			if !e.Mixer.SetGainTrack(c.ID, c.GainDb, c.RampMs) {
				return fmt.Errorf("unknown track %q", c.ID)
			}
		}
		return nil

	case "setDucker":
		p := ducker.Params{}
		if c.Params != nil {
			p = ducker.Params{
				ThresholdDb: c.Params.ThresholdDb,
				Ratio:       c.Params.Ratio,
				AttackMs:    c.Params.AttackMs,
				ReleaseMs:   c.Params.ReleaseMs,
				MaxAttenDb:  c.Params.MaxAttenDb,
				MakeupDb:    c.Params.MakeupDb,
			}
		}
		e.Mixer.SetDucker(c.TargetBusID, c.KeyBusID, 0, p)
		return nil

	case "stop":
		if !e.Mixer.StopTrack(c.TrackID) {
			return fmt.Errorf("unknown track %q", c.TrackID)
		}
		return nil

	default:
		return fmt.Errorf("unrecognized command type %q", c.Type)
	}
}

func (e *Engine) loopConfigFromSpec(l *orchestrator.LoopSpec) track.Config {
	if l == nil {
		return track.Config{Mode: track.LoopNone}
	}
	cfg := track.Config{Start: l.Start, End: l.End}
	if l.End != nil && *l.End < 0 {
		// The wire form's -1 means "end of asset", the same as null.
		cfg.End = nil
	}
	switch l.Mode {
	case "seamless":
		cfg.Mode = track.LoopSeamless
	case "xfade":
		cfg.Mode = track.LoopXfade
		cfg.XfadeFrames = int(float64(l.CrossfadeMs) / 1000 * e.Mixer.SampleRate())
	default:
		cfg.Mode = track.LoopNone
	}
	return cfg
}

func transitionAtFromSpec(at string) mixer.TransitionAt {
	switch at {
	case "loopEnd":
		return mixer.TransitionLoopEnd
	case "nextMarker":
		return mixer.TransitionNextMarker
	default:
		return mixer.TransitionNow
	}
}
