package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These exercise the real /proc files; they assume a Linux test host,
// matching the rest of the daemon's host-telemetry approach.

func TestReadHostMemoryReportsPositiveTotals(t *testing.T) {
	mem, err := readHostMemory()
	require.NoError(t, err)
	assert.Greater(t, mem.TotalBytes, uint64(0))
	assert.GreaterOrEqual(t, mem.TotalBytes, mem.AvailableBytes)
}

func TestReadLoadAverageReportsNonNegativeValues(t *testing.T) {
	one, five, fifteen, err := readLoadAverage()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, one, 0.0)
	assert.GreaterOrEqual(t, five, 0.0)
	assert.GreaterOrEqual(t, fifteen, 0.0)
}
