package domain

import "time"

// Notification windows around a prayer time.
const (
	AlarmLead   = 20 * time.Minute // "upcoming" fires when the prayer is at most this far ahead
	OccurredLag = 10 * time.Minute // "occurred" fires once the prayer is more than this far behind
)

// Timings maps a prayer to its local "HH:MM" time as reported by the provider.
type Timings map[Prayer]string

// DaySchedule is the result of BuildSchedule: UTC prayer times for one local date.
type DaySchedule struct {
	Times     [PrayerCount]*time.Time
	LocalDate time.Time
}

// OffsetZone returns a fixed zone for a whole-hour UTC offset.
func OffsetZone(offset int) *time.Location {
	return time.FixedZone(FormatOffset(offset), offset*3600)
}

// DateOf drops the clock part of t, keeping its calendar date as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LocalDateAt returns the calendar date at nowUTC for a user with the given offset.
func LocalDateAt(nowUTC time.Time, offset int) time.Time {
	return DateOf(nowUTC.In(OffsetZone(offset)))
}

// LocalTime converts a stored UTC instant to the user's wall clock.
func LocalTime(t time.Time, offset int) time.Time {
	return t.In(OffsetZone(offset))
}

// BuildSchedule converts local provider timings for localDate into UTC instants.
// Prayers already before nowUTC, and prayers missing from timings, are left nil.
func BuildSchedule(localDate time.Time, timings Timings, offset int, nowUTC time.Time) DaySchedule {
	zone := OffsetZone(offset)
	d := DateOf(localDate)
	day := DaySchedule{LocalDate: d}
	for _, p := range Prayers {
		raw, ok := timings[p]
		if !ok {
			continue
		}
		h, m, err := ParseClock(raw)
		if err != nil {
			continue
		}
		at := time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, zone).UTC()
		if at.Before(nowUTC) {
			continue
		}
		day.Times[p] = &at
	}
	return day
}

// Event is the notification a prayer requires on the current tick.
type Event int

const (
	EventNone Event = iota
	EventUpcoming
	EventOccurred
)

func (e Event) String() string {
	switch e {
	case EventUpcoming:
		return "upcoming"
	case EventOccurred:
		return "occurred"
	default:
		return "none"
	}
}

// Due decides which notification, if any, a prayer needs at now.
// The upcoming window is checked first; at most one event is returned per call.
func Due(at *time.Time, alarmSent, occurredSent bool, now time.Time) Event {
	if at == nil {
		return EventNone
	}
	diff := at.Sub(now)
	switch {
	case diff > 0 && diff <= AlarmLead && !alarmSent:
		return EventUpcoming
	case diff < -OccurredLag && !occurredSent:
		return EventOccurred
	}
	return EventNone
}

// NextPrayer returns the first prayer strictly after localNow on localNow's date.
// The third result is false when every prayer of the day has passed.
func NextPrayer(timings Timings, localNow time.Time) (Prayer, string, bool) {
	nowM := localNow.Hour()*60 + localNow.Minute()
	for _, p := range Prayers {
		raw, found := timings[p]
		if !found {
			continue
		}
		h, m, err := ParseClock(raw)
		if err != nil {
			continue
		}
		if h*60+m > nowM {
			return p, FormatMinutes(h*60 + m), true
		}
	}
	return 0, "", false
}
