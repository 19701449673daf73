package repositories

import (
	"context"

	"github.com/nightcrane/lotterybot/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LotteryRepository defines the interface for lottery data operations.
//
// Lookups take an optional chat scope: when chatID is non-nil the record is
// only returned if it belongs to that chat, which guards against cross-chat
// id guessing. Missing records are reported as nil (or a no-op for writes),
// never as an error; callers treat "lottery gone" as expected flow.
type LotteryRepository interface {
	Create(ctx context.Context, lottery *models.Lottery) error
	FindByID(ctx context.Context, id primitive.ObjectID, chatID *int64) (*models.Lottery, error)
	// FindUnended returns every lottery that has not been drawn yet, used for
	// re-arming scheduled draws on startup.
	FindUnended(ctx context.Context) ([]*models.Lottery, error)
	Update(ctx context.Context, id primitive.ObjectID, chatID *int64, fields map[string]interface{}) error
	MarkEnded(ctx context.Context, id primitive.ObjectID, chatID int64) error
	// AddParticipant appends userID to the participant list in a single
	// compare-and-swap style update: it only succeeds if the lottery exists,
	// is not ended, and does not already contain userID. It returns whether
	// the user was added and the participant count after the update, so the
	// caller that pushes the count to the cap can fire the draw exactly once.
	AddParticipant(ctx context.Context, id primitive.ObjectID, chatID *int64, userID int64) (joined bool, count int, err error)
}
