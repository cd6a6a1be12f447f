// Package mixer implements the real-time mixing engine: asset/track/bus
// ownership, sample-accurate resampling and loop/transition scheduling
// (delegated to internal/track), sidechain ducking (internal/ducker), and
// master bus summation. ProcessInto is allocation-free on its hot path:
// bus accumulators are preallocated and only resized when the host's block
// size grows, per spec.md §5 and §9.
package mixer

import (
	"math"

	"github.com/cbegin/sampo-engine/internal/asset"
	"github.com/cbegin/sampo-engine/internal/ducker"
	"github.com/cbegin/sampo-engine/internal/pan"
	"github.com/cbegin/sampo-engine/internal/track"
)

// EventKind identifies an engine-to-host notification emitted by ProcessInto.
type EventKind int

const (
	// EventTrackEnded fires exactly once per track when a LoopNone track
	// reaches its last sample. spec.md §9 notes the source never actually
	// implements this delivery; this is the addition that closes that gap.
	EventTrackEnded EventKind = iota
)

// Event is a single engine-to-host notification.
type Event struct {
	Kind    EventKind
	TrackID string
}

const defaultSampleRate = 48000

// Mixer owns assets, tracks, buses, and duckers, and renders stereo blocks
// on demand via ProcessInto.
type Mixer struct {
	sampleRate float64
	assets     *asset.Registry

	tracks   map[string]*track.Track
	trackOrd []string // insertion order, stable across ProcessInto calls

	busIndex map[string]int
	busNames []string

	// per-bus dB gain ramp state, indexed by bus ordinal. Ramps are linear
	// in dB, per spec.md §9.
	busGainDb       []float64
	busGainDbTarget []float64
	busGainDbStep   []float64

	duckersByTarget map[int]*ducker.Ducker

	// preallocated per-bus accumulators, indexed by bus ordinal; replaced
	// by a larger allocation only when the host requests a larger block
	// (or a new bus appears).
	busL [][]float32
	busR [][]float32
	cap  int

	events chan Event

	// RecomputeStepOnTransition resolves spec.md §9's open question on
	// whether a track's resampling ratio should be recomputed when a
	// transition binds a new asset with a different sample rate. Default
	// false preserves the source's literal (likely-buggy) behavior of
	// keeping the old ratio.
	RecomputeStepOnTransition bool
}

// New constructs a Mixer at sampleRate. A non-positive rate defaults to
// 48000Hz, matching spec.md §4.1's init contract.
func New(sampleRate float64) *Mixer {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return &Mixer{
		sampleRate:      sampleRate,
		assets:          asset.NewRegistry(),
		tracks:          make(map[string]*track.Track),
		busIndex:        make(map[string]int),
		duckersByTarget: make(map[int]*ducker.Ducker),
		events:          make(chan Event, 64),
	}
}

// SampleRate returns the engine's configured output sample rate.
func (m *Mixer) SampleRate() float64 { return m.sampleRate }

// Events returns the channel on which trackEnded notifications are
// delivered. The channel is buffered (64 deep); a host that never drains it
// will simply stop receiving further notifications once full — audio
// rendering itself is never blocked on a slow or absent consumer.
func (m *Mixer) Events() <-chan Event { return m.events }

func (m *Mixer) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

func (m *Mixer) busOrdinal(name string) int {
	if i, ok := m.busIndex[name]; ok {
		return i
	}
	i := len(m.busNames)
	m.busIndex[name] = i
	m.busNames = append(m.busNames, name)
	m.busGainDb = append(m.busGainDb, 0)
	m.busGainDbTarget = append(m.busGainDbTarget, 0)
	m.busGainDbStep = append(m.busGainDbStep, 0)
	return i
}

// CreateBus registers a bus at an initial gain, creating it if unseen.
// Tracks may also implicitly create buses by name; CreateBus exists so the
// host can set a bus's starting gain before any track binds to it.
func (m *Mixer) CreateBus(id string, gainDb float64) {
	i := m.busOrdinal(id)
	m.busGainDb[i] = gainDb
	m.busGainDbTarget[i] = gainDb
	m.busGainDbStep[i] = 0
}

// SetGainTrack ramps a track's gain to gainDb, linear in dB, over rampMs
// milliseconds (minimum one frame).
func (m *Mixer) SetGainTrack(id string, gainDb float64, rampMs int) bool {
	t, ok := m.tracks[id]
	if !ok {
		return false
	}
	t.SetGainRamp(gainDb, m.msToSamples(rampMs))
	return true
}

// SetGainBus ramps a bus's gain to gainDb, linear in dB, over rampMs
// milliseconds (minimum one frame).
func (m *Mixer) SetGainBus(id string, gainDb float64, rampMs int) {
	i := m.busOrdinal(id)
	rampFrames := m.msToSamples(rampMs)
	m.busGainDbTarget[i] = gainDb
	m.busGainDbStep[i] = (gainDb - m.busGainDb[i]) / float64(rampFrames)
}

// msToSamples converts a ramp duration to frames, clamped to a minimum of
// one frame per spec.md §9 ("ramp_frames ... clamped to ≥1").
func (m *Mixer) msToSamples(ms int) int {
	frames := int(float64(ms) / 1000 * m.sampleRate)
	if frames < 1 {
		frames = 1
	}
	return frames
}

// RegisterAsset stores (or idempotently overwrites) a decoded PCM asset.
// Returns false if channels is empty.
func (m *Mixer) RegisterAsset(id string, sampleRate float64, channels [][]float32) bool {
	return m.assets.Register(id, sampleRate, channels)
}

func (m *Mixer) resolve(id string) (*asset.Asset, bool) { return m.assets.Get(id) }

// CreateTrack creates a track on the default "sfx" bus.
func (m *Mixer) CreateTrack(id, assetID string, pan float64, gainDb float64) bool {
	return m.CreateTrackBus(id, "sfx", assetID, pan, gainDb)
}

// CreateTrackBus creates a track on an explicit bus. Returns false if the
// asset is unknown. Recreating an existing id replaces it.
func (m *Mixer) CreateTrackBus(id, bus, assetID string, panVal float64, gainDb float64) bool {
	a, ok := m.assets.Get(assetID)
	if !ok {
		return false
	}
	pl, pr := pan.Coeffs(panVal)
	m.busOrdinal(bus)
	if _, existed := m.tracks[id]; !existed {
		m.trackOrd = append(m.trackOrd, id)
	}
	m.tracks[id] = &track.Track{
		ID:           id,
		Bus:          bus,
		AssetID:      assetID,
		Step:         a.SampleRate / m.sampleRate,
		GainDb:       gainDb,
		GainDbTarget: gainDb,
		PanL:         pl,
		PanR:         pr,
	}
	return true
}

// SchedulePlay positions a track and starts it playing.
func (m *Mixer) SchedulePlay(id string, offsetSamples int, cfg track.Config) bool {
	t, ok := m.tracks[id]
	if !ok {
		return false
	}
	a, ok := m.assets.Get(t.AssetID)
	if !ok {
		return false
	}
	t.Pos = float64(offsetSamples) * (a.SampleRate / m.sampleRate)
	t.Loop = clampLoopConfig(cfg, a.Len())
	t.Playing = true
	return true
}

// SetLoop replaces a track's loop configuration in place.
func (m *Mixer) SetLoop(id string, cfg track.Config) bool {
	t, ok := m.tracks[id]
	if !ok {
		return false
	}
	a, ok := m.assets.Get(t.AssetID)
	if !ok {
		return false
	}
	t.Loop = clampLoopConfig(cfg, a.Len())
	return true
}

// StopTrack halts a track immediately: unlike SetLoop(LoopNone), which
// still lets the current asset play out to its end, this is a hard stop —
// Playing flips false on the spot and the next ProcessInto call renders
// silence for it.
func (m *Mixer) StopTrack(id string) bool {
	t, ok := m.tracks[id]
	if !ok {
		return false
	}
	t.Playing = false
	return true
}

// SetMarkers stores sorted, de-duplicated marker indices on a track.
func (m *Mixer) SetMarkers(id string, indices []int) bool {
	t, ok := m.tracks[id]
	if !ok {
		return false
	}
	t.SetMarkers(indices)
	return true
}

// TransitionAt selects when a deferred asset switch takes effect.
type TransitionAt int

const (
	TransitionNow TransitionAt = iota
	TransitionLoopEnd
	TransitionNextMarker
)

// Transition schedules (or immediately applies) an asset switch on a
// track, per spec.md §4.1's transition state machine.
func (m *Mixer) Transition(id string, at TransitionAt, toAssetID string, cfg track.Config) bool {
	t, ok := m.tracks[id]
	if !ok {
		return false
	}
	a, ok := m.assets.Get(toAssetID)
	if !ok {
		return false
	}
	lc := clampLoopConfig(cfg, a.Len())
	switch at {
	case TransitionNow:
		t.AssetID = toAssetID
		t.Loop = lc
		t.Pos = float64(lc.Start)
		if m.RecomputeStepOnTransition {
			t.Step = a.SampleRate / m.sampleRate
		}
		t.Pending = nil
		t.PendingAt = nil
	case TransitionLoopEnd:
		t.Pending = &track.PendingSwitch{ToAssetID: toAssetID, Loop: lc}
		t.PendingAt = nil
	case TransitionNextMarker:
		idx := int(t.Pos)
		if next, found := t.NextMarkerAfter(idx); found {
			t.Pending = &track.PendingSwitch{ToAssetID: toAssetID, Loop: lc}
			t.PendingAt = &next
		} else {
			// Degrades to AwaitingLoopEnd per spec.md's transition table.
			t.Pending = &track.PendingSwitch{ToAssetID: toAssetID, Loop: lc}
			t.PendingAt = nil
		}
	}
	return true
}

func clampLoopConfig(cfg track.Config, lenSrc int) track.Config {
	if cfg.End != nil {
		end := *cfg.End
		if end > lenSrc {
			end = lenSrc
		}
		cfg.End = &end
	}
	return cfg
}

// SetDucker installs or replaces the ducker for targetBus. At most one
// ducker per target bus is ever installed (spec.md §3 invariant).
func (m *Mixer) SetDucker(targetBus, keyBus string, sampleRate float64, p ducker.Params) {
	sr := sampleRate
	if sr <= 0 {
		sr = m.sampleRate
	}
	ti := m.busOrdinal(targetBus)
	ki := m.busOrdinal(keyBus)
	m.duckersByTarget[ti] = ducker.New(ti, ki, sr, p)
}

// ensureCapacity grows every bus accumulator to at least n frames. It is
// safe to call repeatedly: a bus whose accumulator is already large enough
// is left untouched (no allocation), so the steady-state hot path performs
// no allocation once every bus has seen the host's largest block size.
func (m *Mixer) ensureCapacity(n int) {
	for len(m.busL) < len(m.busNames) {
		m.busL = append(m.busL, nil)
		m.busR = append(m.busR, nil)
	}
	for i := range m.busNames {
		if len(m.busL[i]) < n {
			m.busL[i] = make([]float32, n)
		}
		if len(m.busR[i]) < n {
			m.busR[i] = make([]float32, n)
		}
	}
	if n > m.cap {
		m.cap = n
	}
}

func zero(buf []float32, n int) {
	for i := 0; i < n; i++ {
		buf[i] = 0
	}
}

// ProcessInto fills outL/outR with the next block of mixed audio and
// returns the frame count written (min of the two slice lengths). It is
// the engine's sole real-time entry point: non-blocking and free of
// per-call heap allocation once the accumulators have grown to the
// largest block size the host has requested.
func (m *Mixer) ProcessInto(outL, outR []float32) int {
	n := len(outL)
	if len(outR) < n {
		n = len(outR)
	}
	if n == 0 {
		return 0
	}

	m.ensureCapacity(n)

	for i := range m.busNames {
		zero(m.busL[i], n)
		zero(m.busR[i], n)
	}
	zero(outL, n)
	zero(outR, n)

	for _, id := range m.trackOrd {
		t, ok := m.tracks[id]
		if !ok || !t.Playing {
			continue
		}
		bi := m.busOrdinal(t.Bus)
		if bi >= len(m.busL) || len(m.busL[bi]) < n {
			m.ensureCapacity(n)
		}
		bl, br := m.busL[bi][:n], m.busR[bi][:n]
		for i := 0; i < n; i++ {
			l, r, ended := t.Render(m.resolve, m.sampleRate, m.RecomputeStepOnTransition)
			bl[i] += l
			br[i] += r
			if ended {
				m.emit(Event{Kind: EventTrackEnded, TrackID: id})
				break
			}
		}
	}

	for _, d := range m.duckersByTarget {
		if d.KeyBus >= len(m.busNames) || d.TargetBus >= len(m.busNames) {
			continue
		}
		d.Process(m.busL[d.TargetBus][:n], m.busR[d.TargetBus][:n], m.busL[d.KeyBus][:n], m.busR[d.KeyBus][:n])
	}

	for i := range m.busNames {
		bl, br := m.busL[i][:n], m.busR[i][:n]
		for f := 0; f < n; f++ {
			g := float32(math.Pow(10, m.busGainDb[i]/20))
			outL[f] += bl[f] * g
			outR[f] += br[f] * g
			if m.busGainDb[i] != m.busGainDbTarget[i] {
				db := m.busGainDb[i] + m.busGainDbStep[i]
				if (m.busGainDbStep[i] > 0 && db >= m.busGainDbTarget[i]) || (m.busGainDbStep[i] < 0 && db <= m.busGainDbTarget[i]) {
					db = m.busGainDbTarget[i]
					m.busGainDbStep[i] = 0
				}
				m.busGainDb[i] = db
			}
		}
	}

	return n
}
