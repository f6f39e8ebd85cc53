package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventTimeout = 2 * time.Second

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07}, 0o644))
}

func waitDirty(sw *ShaderWatcher, timeout time.Duration) bool {
	select {
	case <-sw.Dirty():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestShaderWatcherIndexesExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Sky.vert.spv"))
	writeFile(t, filepath.Join(dir, "Sky.vert"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "nested", "Ground.frag.spv"))

	sw, err := NewShaderWatcher(dir)
	require.NoError(t, err)
	defer sw.Close()

	assert.Len(t, sw.Shaders(), 2)
}

func TestShaderWatcherSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	sw, err := NewShaderWatcher(dir)
	require.NoError(t, err)
	defer sw.Close()

	writeFile(t, filepath.Join(dir, "PostProcess.frag.spv"))
	assert.True(t, waitDirty(sw, eventTimeout))
	assert.Len(t, sw.Shaders(), 1)
}

func TestShaderWatcherIgnoresSources(t *testing.T) {
	dir := t.TempDir()
	sw, err := NewShaderWatcher(dir)
	require.NoError(t, err)
	defer sw.Close()

	writeFile(t, filepath.Join(dir, "Sky.frag"))
	assert.False(t, waitDirty(sw, 200*time.Millisecond))
	assert.Empty(t, sw.Shaders())
}

func TestShaderWatcherCoalesces(t *testing.T) {
	dir := t.TempDir()
	sw, err := NewShaderWatcher(dir)
	require.NoError(t, err)
	defer sw.Close()

	path := filepath.Join(dir, "Ground.vert.spv")
	for i := 0; i < 5; i++ {
		writeFile(t, path)
	}
	require.True(t, waitDirty(sw, eventTimeout))

	// Everything queued so far collapses into at most one more signal.
	time.Sleep(200 * time.Millisecond)
	waitDirty(sw, 10*time.Millisecond)
	assert.False(t, waitDirty(sw, 100*time.Millisecond))
}

func TestShaderWatcherMissingDir(t *testing.T) {
	_, err := NewShaderWatcher(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestShaderWatcherCloseTwice(t *testing.T) {
	sw, err := NewShaderWatcher(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, sw.Close())
	assert.Error(t, sw.Close())
}
