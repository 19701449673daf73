// Package messaging abstracts the chat transport so the lottery services do
// not depend on any particular bot SDK.
package messaging

import "context"

// MemberStatus is the status of a user within a chat
type MemberStatus string

const (
	StatusOwner  MemberStatus = "owner"
	StatusAdmin  MemberStatus = "admin"
	StatusMember MemberStatus = "member"
	StatusLeft   MemberStatus = "left"
	StatusBanned MemberStatus = "banned"
)

// CanPost reports whether the status allows participating in the chat
func (s MemberStatus) CanPost() bool {
	switch s {
	case StatusOwner, StatusAdmin, StatusMember:
		return true
	}
	return false
}

// Reply is a message sent back into an ongoing conversation. Choices, when
// present, are rendered as a one-tap keyboard; RemoveChoices clears a
// previously offered keyboard.
type Reply struct {
	Text          string
	Choices       []string
	RemoveChoices bool
}

// Messenger is the outbound side of the chat transport
type Messenger interface {
	// Send posts a plain message and returns its transport message id
	Send(ctx context.Context, chatID int64, text string) (int, error)
	// Reply answers within a conversation, optionally with a choice keyboard
	Reply(ctx context.Context, chatID int64, reply Reply) error
	// AttachJoinButton edits a posted message to carry the participation
	// control routing joins to the given lottery id
	AttachJoinButton(ctx context.Context, chatID int64, messageID int, lotteryID string) error
	// GetMembership looks up the membership status of a user in a chat
	GetMembership(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	// BotID is the transport identity of the bot itself
	BotID() int64
	// BotName is the public handle users address the bot by
	BotName() string
}
