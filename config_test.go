package kamerwatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dossiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
dossiers:
  - id: "25124"
    terms:
      - frequentiebeleid
      - telecomcode
  - id: "36410"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"25124", "36410"}, cfg.IDs())
	assert.Equal(t, []string{"frequentiebeleid", "telecomcode"}, cfg.Dossiers[0].Terms)
	assert.True(t, cfg.Has("36410"))
	assert.False(t, cfg.Has("99999"))
}

func TestLoadConfigRejectsDuplicateDossiers(t *testing.T) {
	path := writeConfig(t, `
dossiers:
  - id: "25124"
  - id: "25124"
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsMissingID(t *testing.T) {
	path := writeConfig(t, `
dossiers:
  - terms: [telecom]
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
