package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerType determines what causes a lottery to be drawn
type TriggerType string

const (
	// TriggerTime draws the lottery at a fixed deadline
	TriggerTime TriggerType = "time"
	// TriggerParticipants draws the lottery the moment the participant cap is reached
	TriggerParticipants TriggerType = "participants"
)

// Creator identifies the user who created a lottery
type Creator struct {
	ID   int64  `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Lottery represents a raffle with a trigger condition, participant list and
// eventual winner set. It is never deleted; ended lotteries are kept as a
// historical record.
type Lottery struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ChatID          int64              `bson:"chatId" json:"chatId"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Trigger         TriggerType        `bson:"trigger" json:"trigger"`
	WinnerCount     int                `bson:"winnerCount" json:"winnerCount"`
	MaxParticipants int                `bson:"maxParticipants,omitempty" json:"maxParticipants,omitempty"`
	EndTime         time.Time          `bson:"endTime,omitempty" json:"endTime,omitempty"`
	// TokenHash is the bcrypt hash of the join token. The plaintext token is
	// shown to the creator once and never persisted.
	TokenHash         string    `bson:"tokenHash,omitempty" json:"-"`
	Creator           Creator   `bson:"creator" json:"creator"`
	Participants      []int64   `bson:"participants" json:"participants"`
	Winners           []int64   `bson:"winners,omitempty" json:"winners,omitempty"`
	IsEnded           bool      `bson:"isEnded" json:"isEnded"`
	AnnounceMessageID int       `bson:"announceMessageId,omitempty" json:"announceMessageId,omitempty"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasSecret reports whether joining requires presenting a token instead of
// clicking the public join button.
func (l *Lottery) HasSecret() bool {
	return l.TokenHash != ""
}

// DrawResult is the outcome of a winner selection, together with the beacon
// round and seed that make the selection independently reproducible.
type DrawResult struct {
	Winners []int64 `json:"winners"`
	Round   uint64  `json:"round"`
	Seed    string  `json:"seed"`
	// Clamped is set when fewer participants joined than the configured
	// winner count, so every participant won.
	Clamped bool `json:"clamped"`
}
