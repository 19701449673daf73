package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure GocronScheduler implements SchedulerService
var _ SchedulerService = (*GocronScheduler)(nil)

// GocronScheduler arms one-shot draw jobs on an in-process gocron scheduler.
// gocron keeps nothing across restarts; durability comes from Recover
// re-arming every pending deadline found in the store.
type GocronScheduler struct {
	sched       gocron.Scheduler
	draws       DrawService
	lotteryRepo repositories.LotteryRepository
}

// NewSchedulerService creates a new GocronScheduler in the given timezone
func NewSchedulerService(draws DrawService, lotteryRepo repositories.LotteryRepository, loc *time.Location) (*GocronScheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &GocronScheduler{
		sched:       sched,
		draws:       draws,
		lotteryRepo: lotteryRepo,
	}, nil
}

// Start begins executing armed jobs
func (s *GocronScheduler) Start() {
	s.sched.Start()
}

// Shutdown stops the scheduler and drops all armed jobs
func (s *GocronScheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// Arm registers a one-shot draw of the lottery at fireAt. Jobs are tagged by
// lottery id; arming the same id again replaces the earlier job.
func (s *GocronScheduler) Arm(lotteryID primitive.ObjectID, chatID int64, fireAt time.Time) error {
	tag := jobTag(lotteryID)
	s.sched.RemoveByTags(tag)

	_, err := s.sched.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(fireAt)),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.draws.Draw(ctx, lotteryID, chatID); err != nil {
				slog.Error("scheduled draw failed", "lotteryId", lotteryID.Hex(), "error", err)
			}
		}),
		gocron.WithName(tag),
		gocron.WithTags(tag),
	)
	if err != nil {
		return fmt.Errorf("failed to arm draw job: %w", err)
	}
	slog.Info("draw armed", "lotteryId", lotteryID.Hex(), "fireAt", fireAt)
	return nil
}

// Recover re-arms every unended deadline lottery after a restart. Lotteries
// whose deadline passed while the process was down are drawn immediately
// rather than left stuck open.
func (s *GocronScheduler) Recover(ctx context.Context) error {
	lotteries, err := s.lotteryRepo.FindUnended(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unended lotteries: %w", err)
	}

	now := time.Now()
	for _, lottery := range lotteries {
		if lottery.Trigger != models.TriggerTime || lottery.EndTime.IsZero() {
			continue
		}
		if lottery.EndTime.After(now) {
			if err := s.Arm(lottery.ID, lottery.ChatID, lottery.EndTime); err != nil {
				slog.Error("failed to re-arm lottery", "lotteryId", lottery.ID.Hex(), "error", err)
			}
			continue
		}
		slog.Warn("lottery deadline passed while offline, drawing now",
			"lotteryId", lottery.ID.Hex(), "endTime", lottery.EndTime)
		if err := s.draws.Draw(ctx, lottery.ID, lottery.ChatID); err != nil {
			slog.Error("catch-up draw failed", "lotteryId", lottery.ID.Hex(), "error", err)
		}
	}
	return nil
}

func jobTag(lotteryID primitive.ObjectID) string {
	return "lottery-" + lotteryID.Hex()
}
