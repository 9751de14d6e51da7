package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/retry"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/store"
)

// ErrScheduleStale reports that the location was saved but today's timings could not be fetched.
// The previous schedule stays in place until the next rollover.
var ErrScheduleStale = errors.New("prayer schedule not refreshed")

// Sender delivers a notification to a chat.
// telegram.Notifier implements this.
type Sender interface {
	Send(ctx context.Context, chatID int64, msg domain.Message) error
}

// TimingsFetcher returns local "HH:MM" prayer times for a date and coordinate.
type TimingsFetcher interface {
	Fetch(ctx context.Context, date time.Time, lat, lon float64) (domain.Timings, error)
}

// Options tunes the periodic tasks and external calls.
type Options struct {
	NotifyInterval   time.Duration
	RolloverInterval time.Duration
	CallTimeout      time.Duration // bound for one delivery
	FetchRetry       retry.Policy  // timings fetch attempts
	DefaultLocation  domain.Location
	DefaultOffset    int
	AnnounceRollover bool // send "date changed" after a rollover
}

// Scheduler owns the prayer schedule of every user: it sends notifications on
// a short tick, refreshes schedules when a user's local date changes, and
// serves the onboarding and read operations used by the front-end.
type Scheduler struct {
	repo    store.Repo
	log     *zap.Logger
	sender  Sender
	timings TimingsFetcher
	opts    Options
	locks   *userLocks
	now     func() time.Time
}

// New creates a Scheduler. Zero intervals default to 20s (notify) and 1m (rollover).
func New(repo store.Repo, log *zap.Logger, sender Sender, timings TimingsFetcher, opts Options) *Scheduler {
	if opts.NotifyInterval <= 0 {
		opts.NotifyInterval = 20 * time.Second
	}
	if opts.RolloverInterval <= 0 {
		opts.RolloverInterval = time.Minute
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	return &Scheduler{
		repo:    repo,
		log:     log,
		sender:  sender,
		timings: timings,
		opts:    opts,
		locks:   newUserLocks(),
		now:     time.Now,
	}
}

// Run starts the notify and rollover loops and blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler starting",
		zap.Duration("notify", s.opts.NotifyInterval),
		zap.Duration("rollover", s.opts.RolloverInterval),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// Catch up on dates that changed while the bot was down.
		s.Rollover(ctx)
		every(ctx, s.opts.RolloverInterval, s.Rollover)
	}()
	go func() {
		defer wg.Done()
		every(ctx, s.opts.NotifyInterval, s.Notify)
	}()
	wg.Wait()

	s.log.Info("scheduler stopped")
}

func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// fetchDay loads timings for localDate and converts them with BuildSchedule.
func (s *Scheduler) fetchDay(ctx context.Context, loc domain.Location, offset int, localDate, now time.Time) (domain.DaySchedule, error) {
	t, err := s.fetchTimings(ctx, loc, localDate)
	if err != nil {
		return domain.DaySchedule{}, err
	}
	return domain.BuildSchedule(localDate, t, offset, now), nil
}

func (s *Scheduler) fetchTimings(ctx context.Context, loc domain.Location, date time.Time) (domain.Timings, error) {
	var t domain.Timings
	err := retry.Do(ctx, s.opts.FetchRetry, func(ctx context.Context) error {
		var err error
		t, err = s.timings.Fetch(ctx, date, loc.Lat, loc.Lon)
		if err != nil {
			s.log.Warn("timings fetch attempt failed",
				zap.String("date", domain.FormatDate(date)),
				zap.String("location", loc.Name),
				zap.Error(err),
			)
		}
		return err
	})
	return t, err
}

// send delivers msg with a bounded deadline.
func (s *Scheduler) send(ctx context.Context, chatID int64, msg domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	return s.sender.Send(ctx, chatID, msg)
}
