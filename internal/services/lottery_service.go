package services

import (
	"context"

	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure LotteryServiceImpl implements LotteryService
var _ LotteryService = (*LotteryServiceImpl)(nil)

// LotteryServiceImpl exposes read-only lottery queries for the admin API
type LotteryServiceImpl struct {
	lotteryRepo repositories.LotteryRepository
}

// NewLotteryService creates a new LotteryServiceImpl
func NewLotteryService(lotteryRepo repositories.LotteryRepository) *LotteryServiceImpl {
	return &LotteryServiceImpl{lotteryRepo: lotteryRepo}
}

// GetByID retrieves a lottery by id; (nil, nil) when it does not exist
func (s *LotteryServiceImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lottery, error) {
	return s.lotteryRepo.FindByID(ctx, id, nil)
}

// GetUnended lists all lotteries that have not been drawn yet
func (s *LotteryServiceImpl) GetUnended(ctx context.Context) ([]*models.Lottery, error) {
	return s.lotteryRepo.FindUnended(ctx)
}
