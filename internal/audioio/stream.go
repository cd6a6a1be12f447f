// Package audioio bridges the mixer's sample-accurate block rendering to
// ebiten's streaming audio player, the same StreamReader/Player split the
// teacher uses for its own mml playback.
package audioio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// BlockRenderer is satisfied by *mixer.Mixer; kept as an interface so tests
// can drive the stream with a stub.
type BlockRenderer interface {
	ProcessInto(outL, outR []float32) int
}

// StreamReader adapts a BlockRenderer's deinterleaved stereo blocks to
// ebiten's interleaved float32 LE byte stream.
type StreamReader struct {
	mu       sync.Mutex
	renderer BlockRenderer
	bufL     []float32
	bufR     []float32
}

func NewStreamReader(renderer BlockRenderer) *StreamReader {
	return &StreamReader{renderer: renderer}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(r.bufL) < frames {
		r.bufL = make([]float32, frames)
		r.bufR = make([]float32, frames)
	}
	bl, br := r.bufL[:frames], r.bufR[:frames]
	n := r.renderer.ProcessInto(bl, br)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(bl[i]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(br[i]))
	}
	return n * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// Player owns a live ebiten audio player over a mixer-backed stream.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioContextErr  error
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioContextErr != nil {
		return nil, audioContextErr
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens a live player over renderer's output at sampleRate. Only
// one sample rate may be used per process, matching ebiten's context model.
func NewPlayer(sampleRate int, renderer BlockRenderer) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(renderer)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()           { p.player.Play() }
func (p *Player) Pause()          { p.player.Pause() }
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// Position returns the current playback position (what the listener
// actually hears, lagging the renderer by the driver's internal buffer).
func (p *Player) Position() time.Duration { return p.player.Position() }

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
