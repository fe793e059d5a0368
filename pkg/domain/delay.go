package domain

import "time"

// DelayDays computes the elapsed calendar days between the agreed and actual
// completion dates, floored at zero. Both dates are normalized to midnight
// before subtraction so the result is independent of time-of-day components.
// A missing actual date means no delay.
func DelayDays(agreed, actual *time.Time) int {
	if agreed == nil || actual == nil {
		return 0
	}
	a := midnight(*agreed)
	b := midnight(*actual)
	days := int(b.Sub(a) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
