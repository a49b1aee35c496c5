package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeFlag_Duration(t *testing.T) {
	got, err := parseTimeFlag("5m")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-5*time.Minute), got, time.Second)
}

func TestParseTimeFlag_RFC3339(t *testing.T) {
	got, err := parseTimeFlag("2025-12-30T03:30:48Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 30, 3, 30, 48, 0, time.UTC), got.UTC())
}

func TestParseTimeFlag_Invalid(t *testing.T) {
	_, err := parseTimeFlag("yesterday-ish")
	assert.Error(t, err)
}

func TestNormalizeConfigKey(t *testing.T) {
	assert.Equal(t, "follow_backend", normalizeConfigKey("follow-backend"))
	assert.True(t, knownConfigKey("snapshot_backend"))
	assert.False(t, knownConfigKey("unrelated"))
}
