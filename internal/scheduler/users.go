package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/store"
)

// Initialize makes sure a user exists. A new user gets the default location and
// today's schedule; an existing user is returned as stored, without recomputation.
// When the timings fetch fails the user is still created and ErrScheduleStale is returned.
func (s *Scheduler) Initialize(ctx context.Context, chatID int64) (domain.User, error) {
	u, err := s.repo.GetUser(ctx, chatID)
	if err == nil {
		return *u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	now := s.now().UTC()
	nu := domain.User{
		ChatID:    chatID,
		Location:  s.opts.DefaultLocation,
		UTCOffset: s.opts.DefaultOffset,
		CreatedAt: now,
	}
	day, fetchErr := s.fetchDay(ctx, nu.Location, nu.UTCOffset, domain.LocalDateAt(now, nu.UTCOffset), now)
	if fetchErr == nil {
		nu = domain.UserUpdate{Schedule: &day}.Apply(nu)
	}

	created, stored, err := s.createUser(ctx, &nu)
	if err != nil {
		return domain.User{}, err
	}
	if !created {
		return stored, nil
	}
	s.log.Info("user created", zap.Int64("chatID", chatID), zap.String("location", nu.Location.Name))

	if fetchErr != nil {
		s.log.Warn("initial schedule unavailable", zap.Error(fetchErr), zap.Int64("chatID", chatID))
		return nu, fmt.Errorf("%w: %v", ErrScheduleStale, fetchErr)
	}
	return nu, nil
}

// createUser inserts u under the user's lock. When another caller created the
// row first, the stored record is returned instead.
func (s *Scheduler) createUser(ctx context.Context, u *domain.User) (bool, domain.User, error) {
	unlock := s.locks.lock(u.ChatID)
	defer unlock()

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return false, domain.User{}, err
	}
	if created {
		return true, *u, nil
	}
	existing, err := s.repo.GetUser(ctx, u.ChatID)
	if err != nil {
		return false, domain.User{}, err
	}
	return false, *existing, nil
}

// Relocate stores a new location and offset and recomputes today's schedule for it,
// resetting every flag. If the timings fetch fails the location is kept anyway and
// ErrScheduleStale is returned; the old schedule stays until the next rollover.
// The fetch runs before the user's lock is taken.
func (s *Scheduler) Relocate(ctx context.Context, chatID int64, loc domain.Location, offset int) error {
	now := s.now().UTC()
	upd := domain.UserUpdate{Location: &loc, UTCOffset: &offset}
	day, fetchErr := s.fetchDay(ctx, loc, offset, domain.LocalDateAt(now, offset), now)
	if fetchErr == nil {
		upd.Schedule = &day
	}

	if err := s.storeRelocation(ctx, chatID, now, upd); err != nil {
		return err
	}
	s.log.Info("user relocated",
		zap.Int64("chatID", chatID),
		zap.String("location", loc.Name),
		zap.Int("offset", offset),
		zap.Bool("scheduled", fetchErr == nil),
	)

	if fetchErr != nil {
		return fmt.Errorf("%w: %v", ErrScheduleStale, fetchErr)
	}
	return nil
}

func (s *Scheduler) storeRelocation(ctx context.Context, chatID int64, now time.Time, upd domain.UserUpdate) error {
	unlock := s.locks.lock(chatID)
	defer unlock()

	nu := domain.User{ChatID: chatID, Location: *upd.Location, UTCOffset: *upd.UTCOffset, CreatedAt: now}
	if _, err := s.repo.CreateUser(ctx, &nu); err != nil {
		return err
	}
	return s.repo.UpdateUser(ctx, chatID, upd)
}

// PrayerStatus is one line of a Snapshot.
type PrayerStatus struct {
	Prayer       domain.Prayer
	Local        *time.Time // in the user's offset; nil when passed or not computed
	AlarmSent    bool
	OccurredSent bool
}

// Snapshot is the user's current schedule prepared for display.
type Snapshot struct {
	Location  domain.Location
	UTCOffset int
	LocalDate time.Time
	Prayers   [domain.PrayerCount]PrayerStatus
}

// Snapshot returns the stored times in local time together with the flags.
func (s *Scheduler) Snapshot(ctx context.Context, chatID int64) (Snapshot, error) {
	u, err := s.repo.GetUser(ctx, chatID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Location: u.Location, UTCOffset: u.UTCOffset, LocalDate: u.LocalDate}
	for _, p := range domain.Prayers {
		st := PrayerStatus{
			Prayer:       p,
			AlarmSent:    u.Flags.AlarmSent[p],
			OccurredSent: u.Flags.OccurredSent[p],
		}
		if u.Times[p] != nil {
			lt := domain.LocalTime(*u.Times[p], u.UTCOffset)
			st.Local = &lt
		}
		snap.Prayers[p] = st
	}
	return snap, nil
}

// Confirmation summarizes the day after the user confirmed a prayer.
type Confirmation struct {
	Snapshot
	Confirmed domain.Prayer
}

// Done reports whether p counts as performed: the confirmed prayer and every earlier one.
func (c Confirmation) Done(p domain.Prayer) bool {
	return p <= c.Confirmed
}

// MarkConfirmed builds the confirmation summary for p. It is read-only:
// confirming a prayer is an acknowledgment, not a state transition.
func (s *Scheduler) MarkConfirmed(ctx context.Context, chatID int64, p domain.Prayer) (Confirmation, error) {
	if !p.Valid() {
		return Confirmation{}, fmt.Errorf("invalid prayer %d", int(p))
	}
	snap, err := s.Snapshot(ctx, chatID)
	if err != nil {
		return Confirmation{}, err
	}
	return Confirmation{Snapshot: snap, Confirmed: p}, nil
}

// DayView holds the provider timings for one of the user's local dates.
type DayView struct {
	Location domain.Location
	Date     time.Time
	Timings  domain.Timings
}

// Day returns the timings for the user's local date shifted by days (0 today, 1 tomorrow).
func (s *Scheduler) Day(ctx context.Context, chatID int64, days int) (DayView, error) {
	u, err := s.repo.GetUser(ctx, chatID)
	if err != nil {
		return DayView{}, err
	}
	date := domain.LocalDateAt(s.now().UTC(), u.UTCOffset).AddDate(0, 0, days)
	t, err := s.fetchTimings(ctx, u.Location, date)
	if err != nil {
		return DayView{}, err
	}
	return DayView{Location: u.Location, Date: date, Timings: t}, nil
}

// NextView names the next prayer from the user's local now.
type NextView struct {
	Location domain.Location
	Date     time.Time
	Prayer   domain.Prayer
	Clock    string // local HH:MM
}

// Next finds the next prayer today, or tomorrow's Fajr once Isha has passed.
func (s *Scheduler) Next(ctx context.Context, chatID int64) (NextView, error) {
	u, err := s.repo.GetUser(ctx, chatID)
	if err != nil {
		return NextView{}, err
	}
	localNow := domain.LocalTime(s.now().UTC(), u.UTCOffset)
	today := domain.DateOf(localNow)

	t, err := s.fetchTimings(ctx, u.Location, today)
	if err != nil {
		return NextView{}, err
	}
	if p, clock, ok := domain.NextPrayer(t, localNow); ok {
		return NextView{Location: u.Location, Date: today, Prayer: p, Clock: clock}, nil
	}

	tomorrow := today.AddDate(0, 0, 1)
	t, err = s.fetchTimings(ctx, u.Location, tomorrow)
	if err != nil {
		return NextView{}, err
	}
	h, m, err := domain.ParseClock(t[domain.Fajr])
	if err != nil {
		return NextView{}, fmt.Errorf("fajr for %s: %w", domain.FormatDate(tomorrow), err)
	}
	return NextView{Location: u.Location, Date: tomorrow, Prayer: domain.Fajr, Clock: domain.FormatMinutes(h*60 + m)}, nil
}
