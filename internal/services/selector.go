package services

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"

	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/pkg/drand"
)

// BeaconClient fetches a round from a public randomness beacon
type BeaconClient interface {
	Latest(ctx context.Context) (*drand.Round, error)
}

// Compile-time check to ensure DrandWinnerSelector implements WinnerSelector
var _ WinnerSelector = (*DrandWinnerSelector)(nil)

// DrandWinnerSelector selects winners seeded by a drand beacon round, so that
// anyone holding the round's randomness, the participant list and the winner
// count can recompute the identical winner set.
type DrandWinnerSelector struct {
	beacon BeaconClient
}

// NewWinnerSelector creates a new DrandWinnerSelector
func NewWinnerSelector(beacon BeaconClient) *DrandWinnerSelector {
	return &DrandWinnerSelector{beacon: beacon}
}

// Select fetches a fresh beacon round and samples count winners from the
// participant list without replacement
func (s *DrandWinnerSelector) Select(ctx context.Context, participants []int64, count int) (*models.DrawResult, error) {
	round, err := s.beacon.Latest(ctx)
	if err != nil {
		return nil, err
	}
	winners, err := SampleWinners(participants, count, round.Randomness)
	if err != nil {
		return nil, err
	}
	return &models.DrawResult{
		Winners: winners,
		Round:   round.Round,
		Seed:    round.Randomness,
		Clamped: count > len(participants),
	}, nil
}

// SampleWinners deterministically draws count distinct elements from
// participants. The algorithm is fixed so third parties can reproduce it:
// decode the hex seed, take its first 8 bytes big-endian as the math/rand
// source seed, then run a partial Fisher-Yates shuffle over a copy of the
// participant list in its original join order; the first count elements win.
// A count larger than the pool is clamped to the pool size.
func SampleWinners(participants []int64, count int, seed string) ([]int64, error) {
	if count > len(participants) {
		count = len(participants)
	}
	if count <= 0 {
		return []int64{}, nil
	}

	src, err := seedFromHex(seed)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(src))

	pool := append([]int64(nil), participants...)
	for i := 0; i < count; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count], nil
}

func seedFromHex(seed string) (int64, error) {
	b, err := hex.DecodeString(seed)
	if err != nil {
		return 0, fmt.Errorf("invalid beacon randomness %q: %w", seed, err)
	}
	if len(b) < 8 {
		return 0, fmt.Errorf("beacon randomness too short: %d bytes", len(b))
	}
	return int64(binary.BigEndian.Uint64(b[:8])), nil
}
