package values

import "time"

// TimePeriod buckets an hour of the day
type TimePeriod string

const (
	PeriodMorning   TimePeriod = "morning"   // 06:00-11:59
	PeriodAfternoon TimePeriod = "afternoon" // 12:00-17:59
	PeriodEvening   TimePeriod = "evening"   // 18:00-23:59
	PeriodNight     TimePeriod = "night"     // 00:00-05:59
)

// TimePeriods returns the periods in the order used for coverage backfill.
func TimePeriods() []TimePeriod {
	return []TimePeriod{PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight}
}

// PeriodOf returns the period containing hour (0-23).
func PeriodOf(hour int) TimePeriod {
	switch {
	case hour >= 6 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodAfternoon
	case hour >= 18 && hour < 24:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// PeriodOfTime returns the period of t, and false when t is unset.
func PeriodOfTime(t time.Time) (TimePeriod, bool) {
	if t.IsZero() {
		return "", false
	}
	return PeriodOf(t.Hour()), true
}
