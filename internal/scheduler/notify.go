package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/store"
)

// Notify performs one notification cycle over all users.
func (s *Scheduler) Notify(ctx context.Context) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.log.Error("ListUsers failed", zap.Error(err))
		return
	}
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		s.notifyUser(ctx, u.ChatID)
	}
}

// notifyUser evaluates the six prayers of one user against a freshly read record
// and writes the flags back once if any changed.
func (s *Scheduler) notifyUser(ctx context.Context, chatID int64) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	u, err := s.repo.GetUser(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("user vanished before notify", zap.Int64("chatID", chatID))
		return
	}
	if err != nil {
		s.log.Error("GetUser failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}

	now := s.now().UTC()
	flags := u.Flags
	changed := false
	for _, p := range domain.Prayers {
		ev := domain.Due(u.Times[p], flags.AlarmSent[p], flags.OccurredSent[p], now)
		if ev == domain.EventNone {
			continue
		}
		if err := s.send(ctx, chatID, eventMessage(p, ev)); err != nil {
			// Flag stays unset so the next tick retries.
			s.log.Error("send failed",
				zap.Error(err),
				zap.Int64("chatID", chatID),
				zap.String("prayer", p.String()),
				zap.Stringer("event", ev),
			)
			continue
		}
		switch ev {
		case domain.EventUpcoming:
			flags.AlarmSent[p] = true
		case domain.EventOccurred:
			flags.OccurredSent[p] = true
		}
		changed = true
		s.log.Info("notification sent",
			zap.Int64("chatID", chatID),
			zap.String("prayer", p.String()),
			zap.Stringer("event", ev),
		)
	}
	if !changed {
		return
	}

	err = s.repo.UpdateUser(ctx, chatID, domain.UserUpdate{Flags: &flags})
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.log.Warn("user vanished before flag update", zap.Int64("chatID", chatID))
	case err != nil:
		s.log.Error("flag update failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func eventMessage(p domain.Prayer, ev domain.Event) domain.Message {
	if ev == domain.EventUpcoming {
		return domain.Message{Text: fmt.Sprintf(upcomingFmt, p, int(domain.AlarmLead.Minutes())), Prayer: p}
	}
	return domain.Message{Text: fmt.Sprintf(occurredFmt, p), Confirm: true, Prayer: p}
}
