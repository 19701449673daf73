package services

import (
	"context"
	"testing"
	"time"

	"github.com/nightcrane/lotterybot/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newSchedulerFixture(t *testing.T) (*GocronScheduler, *fakeLotteryRepo, *fakeDrawService) {
	t.Helper()
	repo := newFakeLotteryRepo()
	draws := &fakeDrawService{}
	scheduler, err := NewSchedulerService(draws, repo, time.UTC)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	t.Cleanup(func() { scheduler.Shutdown() })
	return scheduler, repo, draws
}

func TestArm(t *testing.T) {
	t.Run("registers a tagged one-shot job", func(t *testing.T) {
		scheduler, _, _ := newSchedulerFixture(t)
		id := primitive.NewObjectID()

		if err := scheduler.Arm(id, -100123, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		jobs := scheduler.sched.Jobs()
		if len(jobs) != 1 {
			t.Fatalf("expected 1 job, got %d", len(jobs))
		}
		if jobs[0].Name() != jobTag(id) {
			t.Errorf("expected job name %q, got %q", jobTag(id), jobs[0].Name())
		}
	})

	t.Run("re-arming the same lottery replaces the job", func(t *testing.T) {
		scheduler, _, _ := newSchedulerFixture(t)
		id := primitive.NewObjectID()

		if err := scheduler.Arm(id, -100123, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := scheduler.Arm(id, -100123, time.Now().Add(2*time.Hour)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if jobs := scheduler.sched.Jobs(); len(jobs) != 1 {
			t.Errorf("expected the earlier job replaced, got %d jobs", len(jobs))
		}
	})

	t.Run("distinct lotteries keep distinct jobs", func(t *testing.T) {
		scheduler, _, _ := newSchedulerFixture(t)

		scheduler.Arm(primitive.NewObjectID(), -100123, time.Now().Add(time.Hour))
		scheduler.Arm(primitive.NewObjectID(), -100123, time.Now().Add(time.Hour))
		if jobs := scheduler.sched.Jobs(); len(jobs) != 2 {
			t.Errorf("expected 2 jobs, got %d", len(jobs))
		}
	})
}

func TestRecover(t *testing.T) {
	ctx := context.Background()

	t.Run("re-arms future deadlines and draws overdue ones", func(t *testing.T) {
		scheduler, repo, draws := newSchedulerFixture(t)

		future := createLottery(t, repo, &models.Lottery{
			ChatID: -100123, Title: "future", Trigger: models.TriggerTime,
			WinnerCount: 1, EndTime: time.Now().Add(time.Hour),
		})
		overdue := createLottery(t, repo, &models.Lottery{
			ChatID: -100123, Title: "overdue", Trigger: models.TriggerTime,
			WinnerCount: 1, EndTime: time.Now().Add(-time.Hour),
		})

		if err := scheduler.Recover(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		jobs := scheduler.sched.Jobs()
		if len(jobs) != 1 {
			t.Fatalf("expected 1 re-armed job, got %d", len(jobs))
		}
		if jobs[0].Name() != jobTag(future.ID) {
			t.Errorf("expected the future lottery armed, got %q", jobs[0].Name())
		}

		if len(draws.draws) != 1 || draws.draws[0] != overdue.ID {
			t.Errorf("expected one catch-up draw for the overdue lottery, got %v", draws.draws)
		}
	})

	t.Run("skips participant-capped and ended lotteries", func(t *testing.T) {
		scheduler, repo, draws := newSchedulerFixture(t)

		createLottery(t, repo, &models.Lottery{
			ChatID: -100123, Title: "capped", Trigger: models.TriggerParticipants,
			WinnerCount: 1, MaxParticipants: 5,
		})
		ended := createLottery(t, repo, &models.Lottery{
			ChatID: -100123, Title: "done", Trigger: models.TriggerTime,
			WinnerCount: 1, EndTime: time.Now().Add(-time.Hour),
		})
		repo.MarkEnded(ctx, ended.ID, -100123)

		if err := scheduler.Recover(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(scheduler.sched.Jobs()) != 0 {
			t.Error("expected no jobs armed")
		}
		if len(draws.draws) != 0 {
			t.Errorf("expected no draws, got %v", draws.draws)
		}
	})
}
