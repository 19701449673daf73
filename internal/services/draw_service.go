package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/nightcrane/lotterybot/internal/messaging"
	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure DrawServiceImpl implements DrawService
var _ DrawService = (*DrawServiceImpl)(nil)

// DrawServiceImpl executes draws: it selects winners through the beacon-seeded
// selector, announces the result, notifies winners and finalizes the record.
type DrawServiceImpl struct {
	lotteryRepo repositories.LotteryRepository
	selector    WinnerSelector
	messenger   messaging.Messenger
	locks       *KeyedMutex
}

// NewDrawService creates a new DrawServiceImpl. The KeyedMutex must be shared
// with the join service so join and draw transitions on one lottery are
// serialized.
func NewDrawService(
	lotteryRepo repositories.LotteryRepository,
	selector WinnerSelector,
	messenger messaging.Messenger,
	locks *KeyedMutex,
) *DrawServiceImpl {
	return &DrawServiceImpl{
		lotteryRepo: lotteryRepo,
		selector:    selector,
		messenger:   messenger,
		locks:       locks,
	}
}

// Draw finalizes the lottery and announces the outcome to chatID. Drawing a
// missing or already ended lottery is a no-op, which makes scheduler fires,
// threshold fires and catch-up draws safe to overlap.
func (s *DrawServiceImpl) Draw(ctx context.Context, lotteryID primitive.ObjectID, chatID int64) error {
	unlock := s.locks.Lock(lotteryID.Hex())
	defer unlock()

	lottery, err := s.lotteryRepo.FindByID(ctx, lotteryID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch lottery: %w", err)
	}
	if lottery == nil || lottery.IsEnded {
		slog.Info("draw skipped", "lotteryId", lotteryID.Hex(), "reason", "missing or already ended")
		return nil
	}

	if len(lottery.Participants) == 0 {
		slog.Warn("drawing lottery with no participants", "lotteryId", lotteryID.Hex())
		if _, err := s.messenger.Send(ctx, chatID, fmt.Sprintf("The lottery \"%s\" ended with no participants, so there are no winners.", lottery.Title)); err != nil {
			return fmt.Errorf("failed to announce empty draw: %w", err)
		}
		if err := s.lotteryRepo.MarkEnded(ctx, lotteryID, lottery.ChatID); err != nil {
			return fmt.Errorf("failed to mark lottery ended: %w", err)
		}
		return nil
	}

	result, err := s.selector.Select(ctx, lottery.Participants, lottery.WinnerCount)
	if err != nil {
		return fmt.Errorf("failed to select winners: %w", err)
	}

	if _, err := s.messenger.Send(ctx, chatID, formatAnnouncement(lottery, result)); err != nil {
		return fmt.Errorf("failed to announce draw: %w", err)
	}

	s.notifyWinners(ctx, lottery, result.Winners)

	// Finalize only after the announcement went out. If either write fails
	// the lottery stays drawable, an accepted at-least-once risk. The scope
	// is the record's own chat, not the announcement target.
	if err := s.lotteryRepo.MarkEnded(ctx, lotteryID, lottery.ChatID); err != nil {
		return fmt.Errorf("failed to mark lottery ended: %w", err)
	}
	if err := s.lotteryRepo.Update(ctx, lotteryID, nil, map[string]interface{}{"winners": result.Winners}); err != nil {
		return fmt.Errorf("failed to persist winners: %w", err)
	}

	slog.Info("lottery drawn",
		"lotteryId", lotteryID.Hex(),
		"winners", len(result.Winners),
		"participants", len(lottery.Participants),
		"round", result.Round,
	)
	return nil
}

// notifyWinners sends each winner a direct message. A winner who never opened
// a chat with the bot cannot be reached; that failure is isolated and
// redirected to the creator so they can follow up manually.
func (s *DrawServiceImpl) notifyWinners(ctx context.Context, lottery *models.Lottery, winners []int64) {
	dm := fmt.Sprintf("🎉 Congratulations, you won the lottery \"%s\"! 🎉\n\nContact the creator (%s) to claim your prize.", lottery.Title, lottery.Creator.Name)
	for _, winnerID := range winners {
		_, err := s.messenger.Send(ctx, winnerID, dm)
		if err == nil {
			continue
		}
		slog.Warn("failed to notify winner", "lotteryId", lottery.ID.Hex(), "winnerId", winnerID, "error", err)
		fallback := fmt.Sprintf("Could not message winner %d of \"%s\" directly. Please remind them to claim their prize.", winnerID, lottery.Title)
		if _, err := s.messenger.Send(ctx, lottery.Creator.ID, fallback); err != nil {
			slog.Warn("failed to notify creator about unreachable winner", "lotteryId", lottery.ID.Hex(), "winnerId", winnerID, "error", err)
		}
	}
}

func formatAnnouncement(lottery *models.Lottery, result *models.DrawResult) string {
	var b strings.Builder
	b.WriteString("🎉 The lottery has ended! 🎉\n\n")
	fmt.Fprintf(&b, "%s\n\n", lottery.Title)
	fmt.Fprintf(&b, "Winners:\n%s\n\n", joinIDs(result.Winners))
	fmt.Fprintf(&b, "Participants:\n%s\n\n", joinIDs(lottery.Participants))
	if result.Clamped {
		fmt.Fprintf(&b, "Only %d of the configured %d winners could be drawn, so every participant won.\n\n", len(result.Winners), lottery.WinnerCount)
	}
	fmt.Fprintf(&b, "Winners, please contact the creator (%s) to claim your prize!\n\n", lottery.Creator.Name)
	fmt.Fprintf(&b, "This draw was seeded by drand round %d with randomness %s. Anyone can reproduce the result from the participant list above.", result.Round, result.Seed)
	return b.String()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
