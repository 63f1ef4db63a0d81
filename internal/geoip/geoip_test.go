package geoip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReaderDisabledPaths(t *testing.T) {
	r, err := NewReader("")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = NewReader("/nonexistent/path/GeoLite2-City.mmdb")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestNilReaderIsSafe(t *testing.T) {
	var r *Reader

	assert.Nil(t, r.Lookup("203.0.113.9"))
	assert.NoError(t, r.Close())
}

func TestLookupRejectsUnusableIPs(t *testing.T) {
	// No database loaded; these must short-circuit before any DB access.
	r := &Reader{}

	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "10.0.0.1", "192.168.1.5", "::1"} {
		assert.Nil(t, r.Lookup(ip), "ip %q", ip)
	}
}
