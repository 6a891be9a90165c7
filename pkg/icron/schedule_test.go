package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	ref := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 30*time.Minute, info.TimeUntilNext)

	info, err = GetTriggerInfo("@every 5m", ref)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, info.TimeUntilNext)

	_, err = GetTriggerInfo("nope", ref)
	assert.Error(t, err)
}
