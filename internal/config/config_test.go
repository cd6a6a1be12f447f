package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultValues(t *testing.T) {
	l := NewLoader("manifest", "yaml", t.TempDir())
	m, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 48000, m.SampleRate)
	assert.Equal(t, "assets", m.AssetCatalog)
	assert.Len(t, m.Buses, 4)
	assert.Len(t, m.Duckers, 2)
	assert.Len(t, m.AreaVoices, 2)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "manifest.yaml")
	data := `
sampleRate: 44100
assetCatalog: custom_assets
buses:
  - id: bgm
    gainDb: -3
areaVoices:
  - areaId: checkpoint1
    assetId: voice_cp1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	l := NewLoader("manifest", "yaml", tmpDir)
	m, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 44100, m.SampleRate)
	assert.Equal(t, "custom_assets", m.AssetCatalog)
	require.Len(t, m.Buses, 1)
	assert.Equal(t, "bgm", m.Buses[0].ID)
	assert.Equal(t, -3.0, m.Buses[0].GainDb)
	require.Len(t, m.AreaVoices, 1)
	assert.Equal(t, "checkpoint1", m.AreaVoices[0].AreaID)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	l := NewLoader("manifest", "yaml", "/nonexistent/path")
	m, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 48000, m.SampleRate)
}

func TestWatchHotReload(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sampleRate: 48000\n"), 0o644))

	l := NewLoader("manifest", "yaml", tmpDir)
	_, err := l.Load()
	require.NoError(t, err)

	var mu sync.Mutex
	var called bool
	var gotNew Manifest
	stop := l.Watch(func(old, new Manifest) {
		mu.Lock()
		called = true
		gotNew = new
		mu.Unlock()
	})
	defer stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("sampleRate: 96000\n"), 0o644))
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called {
		assert.Equal(t, 96000, gotNew.SampleRate)
	}
}

func TestWatchNilCallbackDoesNotPanic(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sampleRate: 48000\n"), 0o644))

	l := NewLoader("manifest", "yaml", tmpDir)
	_, err := l.Load()
	require.NoError(t, err)

	stop := l.Watch(nil)
	defer stop()
	time.Sleep(50 * time.Millisecond)
}

func TestGetReturnsLastLoaded(t *testing.T) {
	l := NewLoader("manifest", "yaml", t.TempDir())
	_, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 48000, l.Get().SampleRate)
}
