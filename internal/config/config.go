// Package config loads the engine's audio manifest — bus gain defaults,
// ducker presets, the asset catalog path, output sample rate, and the
// area-to-voice-cue bindings — and watches it for hot-reload.
package config

import (
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BusDefault is a named bus's initial gain.
type BusDefault struct {
	ID     string  `mapstructure:"id"`
	GainDb float64 `mapstructure:"gainDb"`
}

// DuckerPreset binds a ducker's parameters to a target/key bus pair.
type DuckerPreset struct {
	TargetBusID string  `mapstructure:"targetBusId"`
	KeyBusID    string  `mapstructure:"keyBusId"`
	ThresholdDb float64 `mapstructure:"thresholdDb"`
	Ratio       float64 `mapstructure:"ratio"`
	AttackMs    float64 `mapstructure:"attackMs"`
	ReleaseMs   float64 `mapstructure:"releaseMs"`
	MaxAttenDb  float64 `mapstructure:"maxAttenDb"`
	MakeupDb    float64 `mapstructure:"makeupDb"`
}

// AreaVoiceBinding maps a one-shot area ID to the voice asset it triggers.
type AreaVoiceBinding struct {
	AreaID  string `mapstructure:"areaId"`
	AssetID string `mapstructure:"assetId"`
}

// Manifest holds the engine's static audio configuration.
type Manifest struct {
	SampleRate   int                `mapstructure:"sampleRate"`
	AssetCatalog string             `mapstructure:"assetCatalog"`
	Buses        []BusDefault       `mapstructure:"buses"`
	Duckers      []DuckerPreset     `mapstructure:"duckers"`
	AreaVoices   []AreaVoiceBinding `mapstructure:"areaVoices"`
}

// ReloadCallback is invoked with the previous and newly loaded manifest
// whenever the watched file changes.
type ReloadCallback func(old, new Manifest)

// Loader owns a viper instance bound to a single manifest file. mu guards
// the current manifest; the hot-reload callback runs after mu is released.
type Loader struct {
	v  *viper.Viper
	mu sync.RWMutex
	m  Manifest

	watchMu  sync.Mutex
	watching bool
	cb       ReloadCallback
}

// NewLoader constructs a Loader reading "<configName>.<ext>" from the given
// search paths (in order); ext defaults to "yaml".
func NewLoader(configName, ext string, searchPaths ...string) *Loader {
	if ext == "" {
		ext = "yaml"
	}
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(ext)
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetDefault("sampleRate", 48000)
	v.SetDefault("assetCatalog", "assets")
	v.SetDefault("buses", []map[string]interface{}{
		{"id": "bgm", "gainDb": -6.0},
		{"id": "ambient", "gainDb": -6.0},
		{"id": "sfx", "gainDb": -6.0},
		{"id": "voice", "gainDb": -6.0},
	})
	v.SetDefault("duckers", []map[string]interface{}{
		{"targetBusId": "bgm", "keyBusId": "voice", "thresholdDb": -30.0, "ratio": 6.0, "attackMs": 15.0, "releaseMs": 200.0, "maxAttenDb": 12.0, "makeupDb": 0.0},
		{"targetBusId": "ambient", "keyBusId": "voice", "thresholdDb": -30.0, "ratio": 6.0, "attackMs": 15.0, "releaseMs": 200.0, "maxAttenDb": 12.0, "makeupDb": 0.0},
	})
	v.SetDefault("areaVoices", []map[string]interface{}{
		{"areaId": "start", "assetId": "voice_03_start"},
		{"areaId": "goal", "assetId": "voice_04_goal"},
	})

	return &Loader{v: v}
}

// Load reads the manifest file if present (a missing file is not an error;
// defaults apply) and unmarshals it into the Loader's current manifest.
func (l *Loader) Load() (Manifest, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Manifest{}, err
		}
	}
	var m Manifest
	if err := l.v.Unmarshal(&m); err != nil {
		return Manifest{}, err
	}
	l.mu.Lock()
	l.m = m
	l.mu.Unlock()
	return m, nil
}

// Get returns a copy of the most recently loaded manifest.
func (l *Loader) Get() Manifest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.m
}

// Watch starts (or replaces the callback of) a file watcher that reloads
// the manifest on change. Returns a stop function.
func (l *Loader) Watch(callback ReloadCallback) func() {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	l.cb = callback
	if l.watching {
		return l.stopWatch
	}
	l.watching = true

	l.v.WatchConfig()
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		l.watchMu.Lock()
		cb := l.cb
		active := l.watching
		l.watchMu.Unlock()
		if !active {
			return
		}

		var newM Manifest
		if err := l.v.Unmarshal(&newM); err != nil {
			return
		}
		l.mu.Lock()
		old := l.m
		l.m = newM
		l.mu.Unlock()
		if cb != nil {
			cb(old, newM)
		}
	})

	return l.stopWatch
}

func (l *Loader) stopWatch() {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	l.watching = false
	l.cb = nil
}
