package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStorageLocationOffset(t *testing.T) {
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, StorageLocation).Zone()
	require.Equal(t, 5*3600+30*60, offset)
}

func TestToStorageSameInstant(t *testing.T) {
	utc := time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)
	ist := ToStorage(utc)
	require.True(t, utc.Equal(ist))
	require.Equal(t, 17, ist.Hour())
	require.Equal(t, 30, ist.Minute())
}

func TestMinutesRemaining(t *testing.T) {
	now := time.Date(2025, 4, 15, 12, 0, 0, 0, StorageLocation)

	require.Equal(t, int64(90), MinutesRemaining(now.Add(90*time.Minute), now))
	require.Equal(t, int64(0), MinutesRemaining(now.Add(30*time.Second), now))
	require.Equal(t, int64(0), MinutesRemaining(now, now))
	require.Equal(t, int64(-1), MinutesRemaining(now.Add(-30*time.Second), now))
	require.Equal(t, int64(-2), MinutesRemaining(now.Add(-90*time.Second), now))
}

func TestMinutesRemainingCrossOffset(t *testing.T) {
	// comparison is instant-based, not wall-clock based
	now := time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 4, 15, 18, 30, 0, 0, StorageLocation) // 13:00 UTC
	require.Equal(t, int64(60), MinutesRemaining(expiry, now))
}
