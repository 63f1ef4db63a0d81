package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/tracker")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("GEOIP_DB", "")
	t.Setenv("INTERNAL_API_KEYS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.GeoIPDBPath)
	// Dev fallback key so /internal routes work out of the box.
	assert.True(t, cfg.InternalKeys["internal-key-123"])
}

func TestLoadParsesInternalKeys(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/tracker")
	t.Setenv("INTERNAL_API_KEYS", " key-a , key-b ,, ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"key-a": true, "key-b": true}, cfg.InternalKeys)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TRACKER_TEST_VAR", "")
	assert.Equal(t, "fallback", GetEnv("TRACKER_TEST_VAR", "fallback"))

	t.Setenv("TRACKER_TEST_VAR", "set")
	assert.Equal(t, "set", GetEnv("TRACKER_TEST_VAR", "fallback"))
}
