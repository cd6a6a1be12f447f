// Command sampo-play drives the engine from a manifest and a folder of WAV
// assets, either live through the default audio device or rendered to a
// WAV file offline.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	sampo "github.com/cbegin/sampo-engine"
	"github.com/cbegin/sampo-engine/internal/audioio"
	"github.com/cbegin/sampo-engine/internal/config"
	"github.com/cbegin/sampo-engine/internal/wav"
)

func main() {
	var (
		manifestDir = flag.String("manifest-dir", ".", "directory containing manifest.yaml")
		road        = flag.String("road", "root1", "initial road id to route BGM for")
		duration    = flag.Float64("seconds", 5.0, "offline render duration in seconds")
		out         = flag.String("out", "", "render to this WAV file instead of live playback")
	)
	flag.Parse()

	logger := log.New(os.Stderr)
	logger.SetPrefix("sampo-play")

	loader := config.NewLoader("manifest", "yaml", *manifestDir)
	manifest, err := loader.Load()
	if err != nil {
		logger.Fatal("loading manifest", "err", err)
	}

	e := sampo.New(float64(manifest.SampleRate), logger)
	for _, b := range manifest.Buses {
		e.Mixer.CreateBus(b.ID, b.GainDb)
	}

	if err := loadAssetCatalog(e, filepath.Join(*manifestDir, manifest.AssetCatalog)); err != nil {
		logger.Fatal("loading asset catalog", "err", err)
	}

	e.StartBGM()
	e.OnGeoUpdate(*road, nil)

	sessionID := uuid.NewString()
	logger.Info("session started", "id", sessionID, "road", *road)

	if *out != "" {
		renderOffline(e, *out, *duration, manifest.SampleRate, logger)
		return
	}

	playLive(e, manifest.SampleRate, logger)
}

func loadAssetCatalog(e *sampo.Engine, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.EqualFold(filepath.Ext(ent.Name()), ".wav") {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		decoded, err := wav.Decode(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		id := strings.TrimSuffix(ent.Name(), filepath.Ext(ent.Name()))
		if !e.RegisterAsset(id, decoded.SampleRate, decoded.Channels) {
			return fmt.Errorf("registering asset %q: empty audio data", id)
		}
	}
	return nil
}

func renderOffline(e *sampo.Engine, path string, seconds float64, sampleRate int, logger *log.Logger) {
	frames := int(seconds * float64(sampleRate))
	outL := make([]float32, frames)
	outR := make([]float32, frames)
	e.ProcessInto(outL, outR)

	data := wav.EncodeFloat32LE(outL, outR, sampleRate)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Fatal("writing rendered wav", "err", err)
	}
	logger.Info("rendered offline", "path", path, "seconds", seconds)
}

func playLive(e *sampo.Engine, sampleRate int, logger *log.Logger) {
	player, err := audioio.NewPlayer(sampleRate, e)
	if err != nil {
		logger.Fatal("opening audio device", "err", err)
	}
	player.Play()
	logger.Info("playing; press Ctrl+C to stop")
	for player.IsPlaying() {
		time.Sleep(200 * time.Millisecond)
	}
}
