package domain

import "time"

// Location is a resolved place the user receives prayer times for.
type Location struct {
	Name string
	Lat  float64
	Lon  float64
}

// ShortName returns the first component of a display name like "Moscow, Central, Russia".
func (l Location) ShortName() string {
	for i, r := range l.Name {
		if r == ',' {
			return l.Name[:i]
		}
	}
	return l.Name
}

// Flags are the per-day idempotence markers of the notification state machine.
type Flags struct {
	AlarmSent    [PrayerCount]bool // "upcoming" sent
	OccurredSent [PrayerCount]bool // "did you pray" sent
}

// User represents a chat subscribed to prayer notifications.
type User struct {
	ChatID    int64
	Location  Location
	UTCOffset int                     // whole hours
	Times     [PrayerCount]*time.Time // UTC, nil when passed or not computed
	Flags     Flags
	LocalDate time.Time // local calendar date of Times (midnight UTC); zero if never computed
	CreatedAt time.Time // UTC
}

// UserUpdate describes a single write to a user record. Nil fields are left untouched.
// Setting Schedule stores the times and local date and resets every flag.
type UserUpdate struct {
	Location  *Location
	UTCOffset *int
	Schedule  *DaySchedule
	Flags     *Flags
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Location == nil && u.UTCOffset == nil && u.Schedule == nil && u.Flags == nil
}

// Apply returns a copy of usr with the update applied, mirroring what the store persists.
func (u UserUpdate) Apply(usr User) User {
	if u.Location != nil {
		usr.Location = *u.Location
	}
	if u.UTCOffset != nil {
		usr.UTCOffset = *u.UTCOffset
	}
	if u.Schedule != nil {
		usr.Times = u.Schedule.Times
		usr.LocalDate = u.Schedule.LocalDate
		usr.Flags = Flags{}
	}
	if u.Flags != nil {
		usr.Flags = *u.Flags
	}
	return usr
}
