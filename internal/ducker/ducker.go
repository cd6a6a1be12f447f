// Package ducker implements a sidechain gain-reduction unit, grounded on
// the teacher's envelope-follower compressor (internal/effects/compressor.go)
// but generalized to the mixer's bus-level sidechain model: a single
// stereo magnitude envelope keyed on one bus, asymmetric attack/release
// smoothing of the applied gain reduction, a maximum-attenuation clamp, and
// make-up gain.
package ducker

import "math"

// Params are the control-rate inputs to New; time constants are given in
// milliseconds and converted to one-pole coefficients internally.
type Params struct {
	ThresholdDb float64
	Ratio       float64
	AttackMs    float64
	ReleaseMs   float64
	MaxAttenDb  float64
	MakeupDb    float64
}

// Ducker is a stateful sidechain gain reducer. Env and Gr persist across
// ProcessInto calls by design (§4.1.1 of the spec): a ducker must keep
// smoothing state between audio blocks.
type Ducker struct {
	TargetBus int
	KeyBus    int

	thresholdDb  float64
	thresholdLin float64
	ratio        float64
	attack       float64
	release      float64
	maxAttenDb   float64
	makeupLin    float64

	env float64
	gr  float64
}

// New builds a Ducker for the given sample rate, clamping invalid
// parameters to the nearest valid value per spec.md §7 (ratio<1 clamps to
// 1, maxAttenDb<0 clamps to 0) rather than erroring.
func New(targetBus, keyBus int, sampleRate float64, p Params) *Ducker {
	ratio := p.Ratio
	if ratio < 1 {
		ratio = 1
	}
	maxAtten := p.MaxAttenDb
	if maxAtten < 0 {
		maxAtten = 0
	}
	return &Ducker{
		TargetBus:    targetBus,
		KeyBus:       keyBus,
		thresholdDb:  p.ThresholdDb,
		thresholdLin: math.Pow(10, p.ThresholdDb/20),
		ratio:        ratio,
		attack:       onePole(p.AttackMs, sampleRate),
		release:      onePole(p.ReleaseMs, sampleRate),
		maxAttenDb:   maxAtten,
		makeupLin:    math.Pow(10, p.MakeupDb/20),
		gr:           1,
	}
}

func onePole(timeMs, sampleRate float64) float64 {
	if timeMs <= 0 || sampleRate <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/(sampleRate*timeMs/1000))
}

// Process applies sidechain gain reduction in place to the target bus's
// stereo accumulator, keyed on keyL/keyR (the key bus's accumulator for
// this block). Only the first n frames are processed, where n is the
// shortest of the four slice lengths.
func (d *Ducker) Process(targetL, targetR, keyL, keyR []float32) {
	n := len(targetL)
	if len(targetR) < n {
		n = len(targetR)
	}
	if len(keyL) < n {
		n = len(keyL)
	}
	if len(keyR) < n {
		n = len(keyR)
	}

	env, gr := d.env, d.gr
	for i := 0; i < n; i++ {
		kl, kr := float64(keyL[i]), float64(keyR[i])
		mag := math.Sqrt(kl*kl+kr*kr) * math.Sqrt(0.5)

		delta := mag - env
		if delta > 0 {
			env += d.attack * delta
		} else {
			env += d.release * delta
		}

		gTarget := 1.0
		if env > d.thresholdLin {
			envDb := 20 * math.Log10(env+1e-12)
			exceed := envDb - d.thresholdDb
			attenDb := (1 - 1/d.ratio) * exceed
			attenDb = clamp(attenDb, 0, d.maxAttenDb)
			gTarget = math.Pow(10, -attenDb/20)
		}

		dgr := gTarget - gr
		if dgr > 0 {
			gr += d.release * dgr
		} else {
			gr += d.attack * dgr
		}

		targetL[i] = float32(float64(targetL[i]) * gr * d.makeupLin)
		targetR[i] = float32(float64(targetR[i]) * gr * d.makeupLin)
	}
	d.env, d.gr = env, gr
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
