// Package asset holds immutable decoded PCM sources for the mixer.
package asset

// Asset is an immutable decoded PCM source. Channels holds one entry for a
// mono asset (rendered as L=R) or two for stereo; every channel has equal
// length.
type Asset struct {
	SampleRate float64
	Channels   [][]float32
}

// New validates and constructs an Asset. It returns false if channels is
// empty, matching the spec's "unknown key never created" error kind for
// invalid registration input.
func New(sampleRate float64, channels [][]float32) (Asset, bool) {
	if len(channels) == 0 {
		return Asset{}, false
	}
	return Asset{SampleRate: sampleRate, Channels: channels}, true
}

// Len returns the sample count of the asset's channels (len_src in the
// spec). Channels are assumed equal length; callers that construct Asset
// directly are responsible for that invariant.
func (a Asset) Len() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// At returns the left/right sample pair at an exact integer index, treating
// a mono asset as L=R. Out-of-range indices clamp to the nearest valid
// sample rather than panicking, since the render loop clamps idx1 itself
// but callers may still probe boundary cases.
func (a Asset) At(idx int) (l, r float32) {
	n := a.Len()
	if n == 0 {
		return 0, 0
	}
	if idx < 0 {
		idx = 0
	} else if idx >= n {
		idx = n - 1
	}
	l = a.Channels[0][idx]
	if len(a.Channels) > 1 {
		r = a.Channels[1][idx]
	} else {
		r = l
	}
	return l, r
}

// Registry is a string-keyed store of assets. Besides control-rate
// operations (RegisterAsset, CreateTrack, Transition), the mixer's render
// loop looks assets up here once per track per sample, through the
// resolver it passes to track.Render.
type Registry struct {
	byID map[string]*Asset
}

// NewRegistry creates an empty asset registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Asset)}
}

// Register stores (or idempotently overwrites) an asset under id. It
// returns false and leaves the registry unchanged if channels is empty.
func (r *Registry) Register(id string, sampleRate float64, channels [][]float32) bool {
	a, ok := New(sampleRate, channels)
	if !ok {
		return false
	}
	r.byID[id] = &a
	return true
}

// Get resolves an asset by id.
func (r *Registry) Get(id string) (*Asset, bool) {
	a, ok := r.byID[id]
	return a, ok
}
