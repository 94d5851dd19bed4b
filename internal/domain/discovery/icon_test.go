package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIconSniffsMIME(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icon.png")
	// Minimal PNG signature is enough for content sniffing.
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	require.NoError(t, os.WriteFile(path, png, 0o644))

	data, mime := loadIcon(path)
	assert.Equal(t, png, data)
	assert.Equal(t, "image/png", mime)
}

func TestLoadIconMissingFile(t *testing.T) {
	data, mime := loadIcon(filepath.Join(t.TempDir(), "nope.icns"))
	assert.Nil(t, data)
	assert.Empty(t, mime)
}

func TestLoadIconEmptyPath(t *testing.T) {
	data, mime := loadIcon("")
	assert.Nil(t, data)
	assert.Empty(t, mime)
}
