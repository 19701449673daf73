package services

import (
	"context"
	"time"

	"github.com/nightcrane/lotterybot/internal/messaging"
	"github.com/nightcrane/lotterybot/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WinnerSelector draws winners from a participant list using a verifiable
// randomness source
type WinnerSelector interface {
	// Select picks count distinct winners. When count exceeds the pool size
	// every participant wins and the result is flagged as clamped.
	Select(ctx context.Context, participants []int64, count int) (*models.DrawResult, error)
}

// DrawService executes the draw for a lottery: winner selection,
// announcements and final persistence
type DrawService interface {
	Draw(ctx context.Context, lotteryID primitive.ObjectID, chatID int64) error
}

// JoinService processes participation requests. Both entry points return the
// short user-facing reply for the acting user.
type JoinService interface {
	// JoinByButton handles a click on the participation control in the chat
	// the lottery was announced to
	JoinByButton(ctx context.Context, lotteryID primitive.ObjectID, chatID, userID int64) (string, error)
	// JoinByToken handles a join presented as <lottery_id>:<token> from the
	// bot's private chat
	JoinByToken(ctx context.Context, lotteryID primitive.ObjectID, token string, userID int64) (string, error)
}

// SchedulerService arms one-shot draw jobs for deadline-triggered lotteries
type SchedulerService interface {
	Start()
	// Arm registers a draw at fireAt, keyed by lottery id. Re-arming the same
	// id replaces the prior job.
	Arm(lotteryID primitive.ObjectID, chatID int64, fireAt time.Time) error
	// Recover re-arms every pending deadline job found in the store. Overdue
	// lotteries get an immediate catch-up draw.
	Recover(ctx context.Context) error
	Shutdown() error
}

// WizardService runs the multi-step lottery creation conversation
type WizardService interface {
	// Active reports whether the user has a creation conversation in flight
	Active(userID int64) bool
	// Start opens a new conversation and returns the first prompt
	Start(ctx context.Context, user models.Creator) messaging.Reply
	// Advance feeds one user message into the conversation and returns the
	// next prompt. Invalid input re-prompts without changing state.
	Advance(ctx context.Context, user models.Creator, input string) messaging.Reply
	// Cancel drops the user's conversation, if any
	Cancel(userID int64)
}

// LotteryService exposes read-only lottery queries for the admin API
type LotteryService interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error)
	GetUnended(ctx context.Context) ([]*models.Lottery, error)
}

// AuthService issues admin API tokens
type AuthService interface {
	Login(ctx context.Context, password string) (string, error)
}
