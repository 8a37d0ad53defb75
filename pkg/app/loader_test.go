package app

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLoader []byte

func (l staticLoader) Load(*url.URL) ([]byte, error) {
	return l, nil
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(path, []byte("certificate"), 0600))

	for _, fileURL := range []string{path, "file://" + path} {
		contents, err := LoadFile(fileURL)
		require.NoError(t, err)
		assert.Equal(t, "certificate", string(contents))
	}

	_, err := LoadFile("memory://cert.pem")
	assert.Error(t, err)

	RegisterFileLoaderCtor("memory", func() (FileLoader, error) {
		return staticLoader("from memory"), nil
	})
	contents, err := LoadFile("memory://cert.pem")
	require.NoError(t, err)
	assert.Equal(t, "from memory", string(contents))

	assert.Panics(t, func() {
		RegisterFileLoaderCtor("memory", nil)
	})
}
