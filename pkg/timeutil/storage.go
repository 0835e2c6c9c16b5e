package timeutil

import "time"

// StorageLocation is the single fixed offset every persisted timestamp is
// stored in. All expiry comparisons normalize "now" into this offset first;
// no other code path may re-derive the conversion.
var StorageLocation = time.FixedZone("UTC+05:30", 5*3600+30*60)

// NowStorage returns the current instant expressed in the storage offset.
func NowStorage() time.Time {
	return time.Now().In(StorageLocation)
}

// ToStorage normalizes t into the storage offset.
func ToStorage(t time.Time) time.Time {
	return t.In(StorageLocation)
}

// MinutesRemaining returns floor((expiry - now) / 1 minute). Negative once
// the expiry has passed.
func MinutesRemaining(expiry, now time.Time) int64 {
	diff := expiry.Sub(now)
	mins := diff / time.Minute
	if diff < 0 && diff%time.Minute != 0 {
		mins--
	}
	return int64(mins)
}
