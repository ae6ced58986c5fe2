package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeciderStrictThreshold(t *testing.T) {
	d := Decider{Threshold: 1.0}

	// Equal to the threshold never alerts.
	assert.Nil(t, d.Decide("dev1", "2025-01-01T00:00:00Z", 1.0))
	assert.Nil(t, d.Decide("dev1", "2025-01-01T00:00:00Z", 0.9999))

	alert := d.Decide("dev1", "2025-01-01T00:00:00Z", 1.0001)
	require.NotNil(t, alert)
	assert.Equal(t, "dev1", alert.DeviceID)
	assert.Equal(t, 1.0001, alert.Score)
	assert.Equal(t, "2025-01-01T00:00:00Z", alert.Window)
}

func TestDeciderThresholdComparison(t *testing.T) {
	score := 1.2345
	assert.NotNil(t, Decider{Threshold: 1.0}.Decide("dev1", "w", score))
	assert.Nil(t, Decider{Threshold: 1.5}.Decide("dev1", "w", score))
}
