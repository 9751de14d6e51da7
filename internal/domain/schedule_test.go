package domain

import (
	"testing"
	"time"
)

func mustUTC(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts.UTC()
}

func fullTimings() Timings {
	return Timings{
		Fajr:    "04:30",
		Sunrise: "06:05",
		Dhuhr:   "12:40",
		Asr:     "16:55",
		Maghrib: "20:10",
		Isha:    "21:45",
	}
}

func TestBuildSchedule_ConvertsLocalToUTC(t *testing.T) {
	localDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	now := mustUTC(t, "2024-06-01T01:20:00Z")

	day := BuildSchedule(localDate, fullTimings(), 3, now)

	if !day.LocalDate.Equal(localDate) {
		t.Fatalf("local date: want %v, got %v", localDate, day.LocalDate)
	}
	want := map[Prayer]string{
		Fajr:    "2024-06-01T01:30:00Z",
		Sunrise: "2024-06-01T03:05:00Z",
		Dhuhr:   "2024-06-01T09:40:00Z",
		Asr:     "2024-06-01T13:55:00Z",
		Maghrib: "2024-06-01T17:10:00Z",
		Isha:    "2024-06-01T18:45:00Z",
	}
	for p, w := range want {
		got := day.Times[p]
		if got == nil {
			t.Fatalf("%s: want %s, got nil", p, w)
		}
		if !got.Equal(mustUTC(t, w)) {
			t.Fatalf("%s: want %s, got %s", p, w, got.Format(time.RFC3339))
		}
		if got.Location() != time.UTC {
			t.Fatalf("%s: stored time must be UTC, got %v", p, got.Location())
		}
	}
}

func TestBuildSchedule_PastPrayersAreNone(t *testing.T) {
	localDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	// 13:00 local at UTC+3: Fajr, Sunrise and Dhuhr are gone.
	now := mustUTC(t, "2024-06-01T10:00:00Z")

	day := BuildSchedule(localDate, fullTimings(), 3, now)

	for _, p := range []Prayer{Fajr, Sunrise, Dhuhr} {
		if day.Times[p] != nil {
			t.Fatalf("%s: want nil for past prayer, got %v", p, day.Times[p])
		}
	}
	for _, p := range []Prayer{Asr, Maghrib, Isha} {
		if day.Times[p] == nil {
			t.Fatalf("%s: want time, got nil", p)
		}
	}
}

func TestBuildSchedule_ExactlyNowIsKept(t *testing.T) {
	localDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	now := mustUTC(t, "2024-06-01T01:30:00Z")

	day := BuildSchedule(localDate, Timings{Fajr: "04:30"}, 3, now)
	if day.Times[Fajr] == nil {
		t.Fatalf("prayer at exactly now must not be dropped")
	}
}

func TestBuildSchedule_MissingAndMalformedTimings(t *testing.T) {
	localDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	now := mustUTC(t, "2024-06-01T00:00:00Z")

	day := BuildSchedule(localDate, Timings{Dhuhr: "12:40 (MSK)", Asr: "late"}, 3, now)

	for _, p := range Prayers {
		switch p {
		case Dhuhr:
			if day.Times[p] == nil || !day.Times[p].Equal(mustUTC(t, "2024-06-01T09:40:00Z")) {
				t.Fatalf("dhuhr: unexpected %v", day.Times[p])
			}
		default:
			if day.Times[p] != nil {
				t.Fatalf("%s: want nil, got %v", p, day.Times[p])
			}
		}
	}
}

func TestBuildSchedule_NegativeOffsetCrossesUTCMidnight(t *testing.T) {
	localDate := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	now := mustUTC(t, "2024-06-01T12:00:00Z")

	day := BuildSchedule(localDate, Timings{Isha: "21:30"}, -5, now)

	want := mustUTC(t, "2024-06-02T02:30:00Z")
	if day.Times[Isha] == nil || !day.Times[Isha].Equal(want) {
		t.Fatalf("isha: want %v, got %v", want, day.Times[Isha])
	}
}

func TestLocalDateAt(t *testing.T) {
	cases := []struct {
		now    string
		offset int
		want   time.Time
	}{
		{"2024-06-01T20:59:00Z", 3, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-06-01T21:00:00Z", 3, time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-06-01T03:00:00Z", -5, time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)},
		{"2024-12-31T23:30:00Z", 0, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got := LocalDateAt(mustUTC(t, c.now), c.offset)
		if !got.Equal(c.want) {
			t.Fatalf("LocalDateAt(%s, %d): want %v, got %v", c.now, c.offset, c.want, got)
		}
	}
}

func TestDue_Windows(t *testing.T) {
	now := mustUTC(t, "2024-06-01T12:00:00Z")
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}
	cases := []struct {
		name         string
		at           *time.Time
		alarmSent    bool
		occurredSent bool
		want         Event
	}{
		{"15m ahead fires upcoming", at(15 * time.Minute), false, false, EventUpcoming},
		{"exactly 20m ahead fires upcoming", at(20 * time.Minute), false, false, EventUpcoming},
		{"25m ahead waits", at(25 * time.Minute), false, false, EventNone},
		{"upcoming already sent", at(15 * time.Minute), true, false, EventNone},
		{"at prayer time nothing", at(0), true, false, EventNone},
		{"9m behind waits", at(-9 * time.Minute), true, false, EventNone},
		{"exactly 10m behind waits", at(-10 * time.Minute), true, false, EventNone},
		{"11m behind fires occurred", at(-11 * time.Minute), true, false, EventOccurred},
		{"occurred without prior alarm", at(-3 * time.Hour), false, false, EventOccurred},
		{"occurred already sent", at(-11 * time.Minute), true, true, EventNone},
		{"nil time skipped", nil, false, false, EventNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Due(c.at, c.alarmSent, c.occurredSent, now)
			if got != c.want {
				t.Fatalf("want %s, got %s", c.want, got)
			}
		})
	}
}

func TestNextPrayer(t *testing.T) {
	tm := fullTimings()
	zone := OffsetZone(3)

	p, clock, ok := NextPrayer(tm, time.Date(2024, time.June, 1, 12, 40, 0, 0, zone))
	if !ok || p != Asr || clock != "16:55" {
		t.Fatalf("want Asr 16:55, got %s %s %v", p, clock, ok)
	}

	p, _, ok = NextPrayer(tm, time.Date(2024, time.June, 1, 1, 0, 0, 0, zone))
	if !ok || p != Fajr {
		t.Fatalf("want Fajr, got %s %v", p, ok)
	}

	if _, _, ok = NextPrayer(tm, time.Date(2024, time.June, 1, 23, 0, 0, 0, zone)); ok {
		t.Fatalf("want no prayer left after Isha")
	}
}

func TestUserUpdate_ScheduleResetsFlags(t *testing.T) {
	u := User{ChatID: 1}
	for _, p := range Prayers {
		u.Flags.AlarmSent[p] = true
		u.Flags.OccurredSent[p] = true
	}
	ts := mustUTC(t, "2024-06-02T01:30:00Z")
	day := DaySchedule{LocalDate: time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)}
	day.Times[Fajr] = &ts

	got := UserUpdate{Schedule: &day}.Apply(u)

	if got.Flags != (Flags{}) {
		t.Fatalf("flags not reset: %+v", got.Flags)
	}
	if got.Times[Fajr] == nil || !got.LocalDate.Equal(day.LocalDate) {
		t.Fatalf("schedule not applied: %+v", got)
	}
}
