package services

import (
	"context"
	"fmt"

	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// User-facing join replies. Rejections are expected flow, not failures.
const (
	ReplyGone          = "This lottery has ended or does not exist."
	ReplyAlreadyJoined = "You have already joined this lottery."
	ReplyJoined        = "You're in! Good luck! 🍀"
	ReplyInvalidToken  = "Invalid token, you cannot join this lottery."
)

// Compile-time check to ensure JoinServiceImpl implements JoinService
var _ JoinService = (*JoinServiceImpl)(nil)

// JoinServiceImpl enforces at-most-once participation and fires the draw when
// a participant-capped lottery fills up
type JoinServiceImpl struct {
	lotteryRepo repositories.LotteryRepository
	draws       DrawService
	locks       *KeyedMutex
}

// NewJoinService creates a new JoinServiceImpl sharing its KeyedMutex with
// the draw service
func NewJoinService(lotteryRepo repositories.LotteryRepository, draws DrawService, locks *KeyedMutex) *JoinServiceImpl {
	return &JoinServiceImpl{
		lotteryRepo: lotteryRepo,
		draws:       draws,
		locks:       locks,
	}
}

// JoinByButton processes a click on the participation control. The lookup is
// scoped to the chat the button lives in, so a guessed id from another chat
// resolves to "does not exist".
func (s *JoinServiceImpl) JoinByButton(ctx context.Context, lotteryID primitive.ObjectID, chatID, userID int64) (string, error) {
	lottery, reply, err := s.join(ctx, lotteryID, &chatID, userID)
	if lottery == nil || err != nil {
		return reply, err
	}
	return reply, s.maybeDraw(ctx, lottery, lottery.ChatID)
}

// JoinByToken processes a <lottery_id>:<token> submission from the bot's
// private chat. The lookup is unscoped; possession of a matching token is the
// access check. Draw results for token lotteries are announced to the
// creator's chat, where the record is scoped.
func (s *JoinServiceImpl) JoinByToken(ctx context.Context, lotteryID primitive.ObjectID, token string, userID int64) (string, error) {
	lottery, err := s.lotteryRepo.FindByID(ctx, lotteryID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch lottery: %w", err)
	}
	if lottery == nil || lottery.IsEnded {
		return ReplyGone, nil
	}
	if !lottery.HasSecret() || bcrypt.CompareHashAndPassword([]byte(lottery.TokenHash), []byte(token)) != nil {
		return ReplyInvalidToken, nil
	}

	lottery, reply, err := s.join(ctx, lotteryID, nil, userID)
	if lottery == nil || err != nil {
		return reply, err
	}
	return reply, s.maybeDraw(ctx, lottery, lottery.Creator.ID)
}

// join runs the common participation transition under the per-lottery lock.
// A non-nil lottery in the result means the user was appended and the caller
// should consider triggering the draw.
func (s *JoinServiceImpl) join(ctx context.Context, lotteryID primitive.ObjectID, chatID *int64, userID int64) (*models.Lottery, string, error) {
	unlock := s.locks.Lock(lotteryID.Hex())
	defer unlock()

	lottery, err := s.lotteryRepo.FindByID(ctx, lotteryID, chatID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch lottery: %w", err)
	}
	if lottery == nil || lottery.IsEnded {
		return nil, ReplyGone, nil
	}

	joined, count, err := s.lotteryRepo.AddParticipant(ctx, lotteryID, chatID, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to add participant: %w", err)
	}
	if !joined {
		// The filter rejected either a duplicate entry or a join racing a
		// full lottery whose draw has not finished yet.
		for _, p := range lottery.Participants {
			if p == userID {
				return nil, ReplyAlreadyJoined, nil
			}
		}
		return nil, ReplyGone, nil
	}

	slog.Info("participant joined", "lotteryId", lotteryID.Hex(), "userId", userID, "participants", count)

	if lottery.Trigger == models.TriggerParticipants && count == lottery.MaxParticipants {
		return lottery, ReplyJoined, nil
	}
	return nil, ReplyJoined, nil
}

// maybeDraw fires the threshold-triggered draw. The join itself already
// succeeded, so a draw failure is logged rather than surfaced to the joining
// user; the lottery stays drawable.
func (s *JoinServiceImpl) maybeDraw(ctx context.Context, lottery *models.Lottery, announceChatID int64) error {
	if err := s.draws.Draw(ctx, lottery.ID, announceChatID); err != nil {
		slog.Error("threshold draw failed", "lotteryId", lottery.ID.Hex(), "error", err)
	}
	return nil
}
