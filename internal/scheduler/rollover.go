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

// Rollover refreshes the schedule of every user whose local date has changed.
// A user whose timings cannot be fetched keeps the old date and is retried next cycle.
func (s *Scheduler) Rollover(ctx context.Context) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.log.Error("ListUsers failed", zap.Error(err))
		return
	}

	updated := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		ok, err := s.rolloverUser(ctx, u.ChatID)
		if err != nil {
			s.log.Error("rollover failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
			continue
		}
		if ok {
			updated++
		}
	}
	if updated > 0 {
		s.log.Info("rollover completed", zap.Int("updated", updated), zap.Int("users", len(users)))
	}
}

// rolloverUser reports whether the user's schedule moved to a new local date.
// The timings are fetched without holding the user's lock; the write re-checks
// the record under the lock and is dropped if the user relocated meanwhile.
func (s *Scheduler) rolloverUser(ctx context.Context, chatID int64) (bool, error) {
	u, err := s.repo.GetUser(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("user vanished before rollover", zap.Int64("chatID", chatID))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	localDate := domain.LocalDateAt(now, u.UTCOffset)
	if u.LocalDate.Equal(localDate) {
		return false, nil
	}

	day, err := s.fetchDay(ctx, u.Location, u.UTCOffset, localDate, now)
	if err != nil {
		return false, fmt.Errorf("fetch timings for %s: %w", domain.FormatDate(localDate), err)
	}

	ok, err := s.storeRollover(ctx, u, day)
	if err != nil || !ok {
		return false, err
	}
	s.log.Info("schedule rolled over",
		zap.Int64("chatID", chatID),
		zap.String("from", formatStoredDate(u.LocalDate)),
		zap.String("to", domain.FormatDate(localDate)),
	)

	if s.opts.AnnounceRollover {
		msg := domain.Message{Text: fmt.Sprintf(dateChangedFmt, domain.FormatDate(localDate))}
		if err := s.send(ctx, chatID, msg); err != nil {
			s.log.Warn("date change message failed", zap.Error(err), zap.Int64("chatID", chatID))
		}
	}
	return true, nil
}

// storeRollover writes day for the user read as prev, unless the record has
// since moved to another place or offset or already reached day's date.
func (s *Scheduler) storeRollover(ctx context.Context, prev *domain.User, day domain.DaySchedule) (bool, error) {
	unlock := s.locks.lock(prev.ChatID)
	defer unlock()

	cur, err := s.repo.GetUser(ctx, prev.ChatID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("user vanished before rollover update", zap.Int64("chatID", prev.ChatID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cur.Location != prev.Location || cur.UTCOffset != prev.UTCOffset || cur.LocalDate.Equal(day.LocalDate) {
		s.log.Info("rollover superseded", zap.Int64("chatID", prev.ChatID))
		return false, nil
	}

	err = s.repo.UpdateUser(ctx, prev.ChatID, domain.UserUpdate{Schedule: &day})
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("user vanished before rollover update", zap.Int64("chatID", prev.ChatID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func formatStoredDate(d time.Time) string {
	if d.IsZero() {
		return "none"
	}
	return d.Format(domain.DateLayout)
}
