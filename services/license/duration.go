package license

import "time"

// DurationMonths converts a (start, end) calendar-date pair into a whole-month
// term. The final partial month does not count as whole, but any positive span
// is billed as at least one month. Callers validate end > start beforehand.
func DurationMonths(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}

	if months < 1 && end.After(start) {
		months = 1
	}

	return months
}
