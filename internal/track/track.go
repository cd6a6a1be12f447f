// Package track implements a single playback voice: its resampling cursor,
// loop boundary handling, and deferred asset switches. The per-sample
// render step lives here so the mixer's hot loop is a single call into
// Track.Render per sample; Render looks the track's asset up through the
// caller's AssetResolver on every call.
package track

import (
	"math"

	"github.com/cbegin/sampo-engine/internal/asset"
)

// LoopMode selects how a track behaves at its loop end. Matches spec.md's
// three-variant tagged union; dispatch is an explicit switch at each use
// site, never trait-like polymorphism, per the teacher's style for
// synthesis-engine mode enums.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopSeamless
	LoopXfade
)

// Config describes a track's loop behavior. End is nil for "end of asset".
type Config struct {
	Mode        LoopMode
	Start       int
	End         *int
	XfadeFrames int
}

// resolvedEnd returns Config.End clamped to lenSrc, or lenSrc if End is nil.
func (c Config) resolvedEnd(lenSrc int) int {
	end := lenSrc
	if c.End != nil {
		end = *c.End
	}
	if end > lenSrc {
		end = lenSrc
	}
	if end < c.Start {
		end = c.Start
	}
	return end
}

// PendingSwitch is a scheduled asset/loop-config change, applied at the
// marker in Track.PendingAt, or at the loop boundary when PendingAt is nil.
// An immediate ("now") switch is applied by the caller and never stored here.
type PendingSwitch struct {
	ToAssetID string
	Loop      Config
}

// Track is a live playback instance bound to one asset at a time.
type Track struct {
	ID      string
	Bus     string
	AssetID string

	Pos  float64 // fractional source-sample cursor
	Step float64 // asset.SampleRate / engine.SampleRate, captured at bind time

	// Gain ramps are linear in dB, per spec.md §9's explicit resolution of
	// the otherwise-unspecified rampMs semantics.
	GainDb       float64
	GainDbTarget float64
	GainDbStep   float64 // per-sample delta applied while GainDb != GainDbTarget

	PanL float64
	PanR float64

	Playing bool

	Loop    Config
	Markers []int // sorted, de-duplicated

	Pending   *PendingSwitch
	PendingAt *int
}

// SetGainRamp schedules a dB-linear ramp from the current gain to targetDb
// over rampFrames samples (minimum 1, per spec.md §9).
func (t *Track) SetGainRamp(targetDb float64, rampFrames int) {
	if rampFrames < 1 {
		rampFrames = 1
	}
	t.GainDbTarget = targetDb
	t.GainDbStep = (targetDb - t.GainDb) / float64(rampFrames)
}

func (t *Track) advanceGain() {
	if t.GainDb == t.GainDbTarget {
		return
	}
	t.GainDb += t.GainDbStep
	if (t.GainDbStep > 0 && t.GainDb >= t.GainDbTarget) || (t.GainDbStep < 0 && t.GainDb <= t.GainDbTarget) {
		t.GainDb = t.GainDbTarget
		t.GainDbStep = 0
	}
}

func (t *Track) linearGain() float32 {
	return float32(math.Pow(10, t.GainDb/20))
}

// SetMarkers stores markers sorted and de-duplicated, per spec.md's marker
// monotonicity property.
func (t *Track) SetMarkers(indices []int) {
	m := append([]int(nil), indices...)
	sortInts(m)
	out := m[:0]
	for i, v := range m {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	t.Markers = out
}

func sortInts(s []int) {
	// Small, always-in-memory marker lists: insertion sort is plenty and
	// avoids pulling in sort for a handful of comparisons in the hot
	// control path (SetMarkers is never called per-sample).
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

// NextMarkerAfter returns the first marker strictly greater than idx, and
// whether one exists.
func (t *Track) NextMarkerAfter(idx int) (int, bool) {
	for _, m := range t.Markers {
		if m > idx {
			return m, true
		}
	}
	return 0, false
}

// AssetResolver looks up an asset id against the registry the mixer passes
// in; render-step callers supply a resolver instead of a registry pointer
// so Track stays free of a dependency on the mixer's asset map shape.
type AssetResolver func(id string) (*asset.Asset, bool)

// Ended reports whether the track is not playing: stopped by end-of-asset
// (§4.1 step 4), halted by the mixer's StopTrack, or never started. It does
// not by itself emit the trackEnded event; the mixer does that once, when
// Render reports the end-of-asset stop, since Track has no event sink.
func (t *Track) Ended() bool { return !t.Playing }

// Render advances the track by one sample, returning the gain- and
// pan-scaled stereo pair as l/r, and reports whether the track
// just ended (so the mixer can emit trackEnded exactly once). recomputeStep
// mirrors Mixer.RecomputeStepOnTransition: when true, Step is recomputed to
// the newly-bound asset's resampling ratio whenever a pending switch
// applies; when false (the default, matching the source's literal
// behavior) Step is left untouched even across a sample-rate-mismatched
// switch.
func (t *Track) Render(resolve AssetResolver, engineSampleRate float64, recomputeStep bool) (l, r float32, justEnded bool) {
	if !t.Playing {
		return 0, 0, false
	}
	a, ok := resolve(t.AssetID)
	if !ok {
		t.Playing = false
		return 0, 0, true
	}
	lenSrc := a.Len()
	if lenSrc == 0 {
		t.Playing = false
		return 0, 0, true
	}

	idx := int(t.Pos)
	frac := t.Pos - float64(idx)

	applySwitch := func() {
		if t.Pending == nil {
			return
		}
		na, ok := resolve(t.Pending.ToAssetID)
		if ok {
			a = na
			lenSrc = a.Len()
			t.AssetID = t.Pending.ToAssetID
			t.Loop = t.Pending.Loop
			t.Pos = float64(t.Loop.Start)
			if recomputeStep {
				t.Step = a.SampleRate / engineSampleRate
			}
			idx = int(t.Pos)
			frac = t.Pos - float64(idx)
		}
		t.Pending = nil
		t.PendingAt = nil
	}

	// Step 2: marker-based pending switch.
	if t.PendingAt != nil && idx >= *t.PendingAt {
		applySwitch()
	}

	// Step 3: loop boundary for Seamless/Xfade.
	lstart := t.Loop.Start
	lend := t.Loop.resolvedEnd(lenSrc)
	if (t.Loop.Mode == LoopSeamless || t.Loop.Mode == LoopXfade) && idx >= lend {
		if t.Pending != nil && t.PendingAt == nil {
			applySwitch()
		} else {
			over := t.Pos - float64(lend)
			wrapTo := lstart
			// An Xfade loop has already played [lstart, lstart+XfadeFrames)
			// as the faded-in head, so playback resumes right after it.
			if t.Loop.Mode == LoopXfade && t.Loop.XfadeFrames > 0 && t.Loop.XfadeFrames < lend-lstart {
				wrapTo += t.Loop.XfadeFrames
			}
			t.Pos = float64(wrapTo) + over
			idx = int(t.Pos)
			frac = t.Pos - float64(idx)
		}
		lstart = t.Loop.Start
		lend = t.Loop.resolvedEnd(lenSrc)
	}

	// Step 4: end-of-asset stop for non-looping tracks.
	if t.Loop.Mode == LoopNone && idx >= lenSrc-1 {
		t.Playing = false
		return 0, 0, true
	}

	s0l, s0r := a.At(idx)

	// Step 5: next-sample fetch for interpolation.
	idx1 := idx + 1
	var s1l, s1r float32
	switch {
	case t.Pending != nil && idx1 >= lend:
		// A deferred transition takes priority over an in-place seamless
		// wrap: the interpolation window already straddles the incoming
		// asset, so the next sample must come from its loop start rather
		// than from this asset's own wraparound.
		if na, ok := resolve(t.Pending.ToAssetID); ok {
			s1l, s1r = na.At(t.Pending.Loop.Start)
		} else {
			s1l, s1r = a.At(clampIdx(idx1, lenSrc))
		}
	case t.Loop.Mode == LoopSeamless && idx1 == lend:
		s1l, s1r = a.At(lstart)
	default:
		s1l, s1r = a.At(clampIdx(idx1, lenSrc))
	}

	// Xfade looping: blend the outgoing tail with the incoming head over
	// the configured crossfade window so the wraparound has no seam. This
	// resolves spec.md's open question on Xfade in favor of a real
	// crossfade rather than aliasing Seamless.
	if t.Loop.Mode == LoopXfade && t.Loop.XfadeFrames > 0 {
		fadeStart := lend - t.Loop.XfadeFrames
		if idx >= fadeStart && idx < lend {
			hl, hr := a.At(lstart + (idx - fadeStart))
			hl1, hr1 := a.At(lstart + (idx - fadeStart) + 1)
			progress := float64(idx-fadeStart) / float64(t.Loop.XfadeFrames)
			tailGain, headGain := pan0_5050(progress)
			il := (s1l-s0l)*float32(frac) + s0l
			ir := (s1r-s0r)*float32(frac) + s0r
			hil := (hl1-hl)*float32(frac) + hl
			hir := (hr1-hr)*float32(frac) + hr
			sl := il*float32(tailGain) + hil*float32(headGain)
			sr := ir*float32(tailGain) + hir*float32(headGain)
			t.Pos += t.Step
			gain := t.linearGain()
			outL, outR := sl*gain*float32(t.PanL), sr*gain*float32(t.PanR)
			t.advanceGain()
			return outL, outR, false
		}
	}

	sl := (s1l-s0l)*float32(frac) + s0l
	sr := (s1r-s0r)*float32(frac) + s0r

	t.Pos += t.Step
	gain := t.linearGain()
	outL, outR := sl*gain*float32(t.PanL), sr*gain*float32(t.PanR)
	t.advanceGain()
	return outL, outR, false
}

func clampIdx(idx, lenSrc int) int {
	if idx >= lenSrc {
		return lenSrc - 1
	}
	if idx < 0 {
		return 0
	}
	return idx
}

// pan0_5050 returns equal-power crossfade gains (outgoing, incoming) for a
// progress value in [0,1]; progress=0 is all-outgoing, progress=1 is
// all-incoming.
func pan0_5050(progress float64) (outGain, inGain float64) {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	// Reuse the same quarter-cosine/sine law as stereo pan, parameterized
	// over [0,1] instead of [-1,1].
	angle := progress * math.Pi / 2
	return math.Cos(angle), math.Sin(angle)
}
