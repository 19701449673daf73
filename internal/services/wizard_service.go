package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nightcrane/lotterybot/internal/messaging"
	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/internal/repositories"
	"github.com/nightcrane/lotterybot/internal/utils"
	"golang.org/x/exp/slog"
)

// WizardState identifies a step of the creation conversation. Exactly one
// field is collected per state; invalid input re-prompts without advancing.
type WizardState int

const (
	StateTitle WizardState = iota
	StateDescription
	StateWinnerCount
	StateTriggerType
	StateEndTime
	StateMaxParticipants
	StateJoinMethod
	StateSendToChat
	StateUseToken
)

// Input sentinels and keyboard choices offered by the wizard
const (
	SkipSentinel        = "/skip"
	RandomTokenSentinel = "/random"

	ChoiceFixedTime      = "Fixed end time"
	ChoiceParticipantCap = "Participant cap"
	ChoicePostToChat     = "Post to a chat"
	ChoiceJoinByToken    = "Join by token"
)

// MinEndTimeLead is how far in the future a lottery deadline must lie
const MinEndTimeLead = 10 * time.Minute

var endTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

type wizardSession struct {
	// mu serializes transitions on this session. Updates arrive on a worker
	// pool, so two quick messages from the same user can be handled
	// concurrently.
	mu    sync.Mutex
	state WizardState
	draft models.Lottery
}

// Compile-time check to ensure WizardServiceImpl implements WizardService
var _ WizardService = (*WizardServiceImpl)(nil)

// WizardServiceImpl collects the lottery fields one message at a time and, on
// the final step, publishes the lottery: persists it, posts or reports the
// join instructions, and arms the scheduler for deadline triggers.
type WizardServiceImpl struct {
	mu       sync.Mutex
	sessions map[int64]*wizardSession

	lotteryRepo repositories.LotteryRepository
	messenger   messaging.Messenger
	scheduler   SchedulerService
	loc         *time.Location
}

// NewWizardService creates a new WizardServiceImpl. loc is the timezone used
// to interpret bare end-time input.
func NewWizardService(
	lotteryRepo repositories.LotteryRepository,
	messenger messaging.Messenger,
	scheduler SchedulerService,
	loc *time.Location,
) *WizardServiceImpl {
	return &WizardServiceImpl{
		sessions:    map[int64]*wizardSession{},
		lotteryRepo: lotteryRepo,
		messenger:   messenger,
		scheduler:   scheduler,
		loc:         loc,
	}
}

// Active reports whether the user has a conversation in flight
func (s *WizardServiceImpl) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// Cancel drops the user's conversation
func (s *WizardServiceImpl) Cancel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Start opens a fresh conversation for the user, replacing any prior one
func (s *WizardServiceImpl) Start(ctx context.Context, user models.Creator) messaging.Reply {
	s.mu.Lock()
	s.sessions[user.ID] = &wizardSession{
		state: StateTitle,
		draft: models.Lottery{Creator: user},
	}
	s.mu.Unlock()
	return messaging.Reply{Text: "Let's create a lottery.\nFirst, send me the title. A good title attracts more participants!"}
}

// Advance feeds one message into the conversation and returns the next prompt
func (s *WizardServiceImpl) Advance(ctx context.Context, user models.Creator, input string) messaging.Reply {
	s.mu.Lock()
	session, ok := s.sessions[user.ID]
	s.mu.Unlock()
	if !ok {
		return messaging.Reply{Text: "There is no lottery being created. Send /lottery to start one."}
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	input = strings.TrimSpace(input)

	switch session.state {
	case StateTitle:
		return s.handleTitle(session, input)
	case StateDescription:
		return s.handleDescription(session, input)
	case StateWinnerCount:
		return s.handleWinnerCount(session, input)
	case StateTriggerType:
		return s.handleTriggerType(session, input)
	case StateEndTime:
		return s.handleEndTime(session, input)
	case StateMaxParticipants:
		return s.handleMaxParticipants(session, input)
	case StateJoinMethod:
		return s.handleJoinMethod(session, input)
	case StateSendToChat:
		return s.handleSendToChat(ctx, user, session, input)
	case StateUseToken:
		return s.handleUseToken(ctx, user, session, input)
	}
	return messaging.Reply{Text: "Something went wrong, send /cancel and start over."}
}

func (s *WizardServiceImpl) handleTitle(session *wizardSession, input string) messaging.Reply {
	if input == "" {
		return messaging.Reply{Text: "The title cannot be empty. Please send a title."}
	}
	session.draft.Title = input
	session.state = StateDescription
	return messaging.Reply{Text: "Now send a description, or " + SkipSentinel + " for none."}
}

func (s *WizardServiceImpl) handleDescription(session *wizardSession, input string) messaging.Reply {
	if input != SkipSentinel {
		session.draft.Description = input
	}
	session.state = StateWinnerCount
	return messaging.Reply{Text: "How many winners should be drawn? Send a positive integer."}
}

func (s *WizardServiceImpl) handleWinnerCount(session *wizardSession, input string) messaging.Reply {
	n, err := strconv.Atoi(input)
	if err != nil || n <= 0 {
		return messaging.Reply{Text: "Please send a valid positive integer for the number of winners."}
	}
	session.draft.WinnerCount = n
	session.state = StateTriggerType
	return messaging.Reply{
		Text:    fmt.Sprintf("Winner count set to %d.\nWhen should the draw happen?\n1. At a fixed end time\n2. When the participant cap is reached", n),
		Choices: []string{ChoiceFixedTime, ChoiceParticipantCap},
	}
}

func (s *WizardServiceImpl) handleTriggerType(session *wizardSession, input string) messaging.Reply {
	switch input {
	case ChoiceFixedTime:
		session.draft.Trigger = models.TriggerTime
		session.state = StateEndTime
		return messaging.Reply{
			Text:          "Send the end time, for example: 2024-12-31 23:59:59",
			RemoveChoices: true,
		}
	case ChoiceParticipantCap:
		session.draft.Trigger = models.TriggerParticipants
		session.state = StateMaxParticipants
		return messaging.Reply{
			Text:          "Send the maximum number of participants (an integer).",
			RemoveChoices: true,
		}
	}
	return messaging.Reply{
		Text:    "Please pick one of the two options.",
		Choices: []string{ChoiceFixedTime, ChoiceParticipantCap},
	}
}

func (s *WizardServiceImpl) handleEndTime(session *wizardSession, input string) messaging.Reply {
	endTime, err := s.parseEndTime(input)
	if err != nil {
		return messaging.Reply{Text: "I could not parse that time. Please use a format like 2024-12-31 23:59:59."}
	}
	if endTime.Before(time.Now().Add(MinEndTimeLead)) {
		return messaging.Reply{Text: "The end time must be at least 10 minutes from now. Please send a later time."}
	}
	session.draft.EndTime = endTime
	session.state = StateJoinMethod
	return messaging.Reply{
		Text:    fmt.Sprintf("End time set to %s.\n%s", endTime.Format("2006-01-02 15:04:05"), joinMethodPrompt),
		Choices: []string{ChoicePostToChat, ChoiceJoinByToken},
	}
}

func (s *WizardServiceImpl) handleMaxParticipants(session *wizardSession, input string) messaging.Reply {
	n, err := strconv.Atoi(input)
	if err != nil || n <= session.draft.WinnerCount {
		return messaging.Reply{Text: fmt.Sprintf("Please send an integer greater than the winner count (%d).", session.draft.WinnerCount)}
	}
	session.draft.MaxParticipants = n
	session.state = StateJoinMethod
	return messaging.Reply{
		Text:    fmt.Sprintf("Participant cap set to %d.\n%s", n, joinMethodPrompt),
		Choices: []string{ChoicePostToChat, ChoiceJoinByToken},
	}
}

const joinMethodPrompt = "How do users join?\n" +
	"1. I post the lottery to a chat and users tap a button. The bot and you must both be members of that chat.\n" +
	"2. Users send the bot a secret token."

func (s *WizardServiceImpl) handleJoinMethod(session *wizardSession, input string) messaging.Reply {
	switch input {
	case ChoicePostToChat:
		session.state = StateSendToChat
		return messaging.Reply{
			Text: "Send the target chat id. It must be a group or channel I have been added to (bot API format, starting with -100).\n" +
				"You can send /info inside the chat to find its id.",
			RemoveChoices: true,
		}
	case ChoiceJoinByToken:
		session.state = StateUseToken
		return messaging.Reply{
			Text: "Send the join token. Make it hard to guess and share it only with the users who may participate.\n" +
				"Or send " + RandomTokenSentinel + " and I will generate one for you.",
			RemoveChoices: true,
		}
	}
	return messaging.Reply{
		Text:    "Please pick one of the two options.",
		Choices: []string{ChoicePostToChat, ChoiceJoinByToken},
	}
}

// handleSendToChat finishes the button flow: verify membership, post the
// announcement, persist the record and attach the join button to the posted
// message so joins route to the right lottery id.
func (s *WizardServiceImpl) handleSendToChat(ctx context.Context, user models.Creator, session *wizardSession, input string) messaging.Reply {
	if !strings.HasPrefix(input, "-100") {
		return messaging.Reply{Text: "That does not look like a group or channel chat id. Bot API chat ids for groups and channels start with -100."}
	}
	chatID, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		return messaging.Reply{Text: "Please send a valid chat id (an integer)."}
	}

	botStatus, err := s.messenger.GetMembership(ctx, chatID, s.messenger.BotID())
	if err == nil {
		var userStatus messaging.MemberStatus
		userStatus, err = s.messenger.GetMembership(ctx, chatID, user.ID)
		if err == nil && (!botStatus.CanPost() || !userStatus.CanPost()) {
			return messaging.Reply{Text: "Either I or you are not a member of that chat. Add me to the group or channel first and make sure I may send messages."}
		}
	}
	if err != nil {
		return messaging.Reply{Text: fmt.Sprintf("I could not verify that we are both members of that chat. Check the chat id and try again.\nError: %v", err)}
	}

	messageID, err := s.messenger.Send(ctx, chatID, formatSummary(&session.draft))
	if err != nil {
		return messaging.Reply{Text: fmt.Sprintf("I could not post to that chat. Make sure I am a member, then try again.\nError: %v", err)}
	}

	session.draft.ChatID = chatID
	if err := s.lotteryRepo.Create(ctx, &session.draft); err != nil {
		return messaging.Reply{Text: fmt.Sprintf("Could not create the lottery.\nError: %v", err)}
	}
	lottery := &session.draft

	if lottery.Trigger == models.TriggerTime {
		if err := s.scheduler.Arm(lottery.ID, chatID, lottery.EndTime); err != nil {
			slog.Error("failed to arm lottery deadline", "lotteryId", lottery.ID.Hex(), "error", err)
		}
	}

	if err := s.messenger.AttachJoinButton(ctx, chatID, messageID, lottery.ID.Hex()); err != nil {
		slog.Error("failed to attach join button", "lotteryId", lottery.ID.Hex(), "error", err)
	}
	if err := s.lotteryRepo.Update(ctx, lottery.ID, &chatID, map[string]interface{}{"announceMessageId": messageID}); err != nil {
		slog.Error("failed to store announcement reference", "lotteryId", lottery.ID.Hex(), "error", err)
	}

	s.Cancel(user.ID)
	return messaging.Reply{Text: "The lottery has been published! 🎉"}
}

// handleUseToken finishes the secret flow: hash the token, persist the record
// scoped to the creator's private chat and report the plaintext exactly once.
func (s *WizardServiceImpl) handleUseToken(ctx context.Context, user models.Creator, session *wizardSession, input string) messaging.Reply {
	token := input
	generated := false
	if token == RandomTokenSentinel {
		token = utils.NewRandomToken()
		generated = true
	}

	hash, err := utils.HashToken(token)
	if err != nil {
		return messaging.Reply{Text: fmt.Sprintf("Could not create the lottery.\nError: %v", err)}
	}
	session.draft.TokenHash = hash
	session.draft.ChatID = user.ID

	if err := s.lotteryRepo.Create(ctx, &session.draft); err != nil {
		return messaging.Reply{Text: fmt.Sprintf("Could not create the lottery.\nError: %v", err)}
	}
	lottery := &session.draft

	if lottery.Trigger == models.TriggerTime {
		if err := s.scheduler.Arm(lottery.ID, user.ID, lottery.EndTime); err != nil {
			slog.Error("failed to arm lottery deadline", "lotteryId", lottery.ID.Hex(), "error", err)
		}
	}

	s.Cancel(user.ID)

	var b strings.Builder
	b.WriteString("The lottery has been created!\n\n")
	b.WriteString(formatSummary(lottery))
	if generated {
		fmt.Fprintf(&b, "\n\nYour generated token is:\n%s", token)
	}
	fmt.Fprintf(&b, "\n\nUsers join by sending @%s:\n/lottery p %s:%s\n", s.messenger.BotName(), lottery.ID.Hex(), token)
	b.WriteString("\nShare these instructions with the users who may participate. The token is shown only this once and is not stored.")
	return messaging.Reply{Text: b.String()}
}

func (s *WizardServiceImpl) parseEndTime(input string) (time.Time, error) {
	for _, layout := range endTimeLayouts {
		if t, err := time.ParseInLocation(layout, input, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", input)
}

func formatSummary(lottery *models.Lottery) string {
	description := lottery.Description
	if description == "" {
		description = "none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s created a lottery:\n\n", lottery.Creator.Name)
	fmt.Fprintf(&b, "Title: %s\n", lottery.Title)
	fmt.Fprintf(&b, "Description: %s\n", description)
	fmt.Fprintf(&b, "Winners: %d\n", lottery.WinnerCount)
	if lottery.Trigger == models.TriggerParticipants {
		fmt.Fprintf(&b, "Participant cap: %d\n", lottery.MaxParticipants)
	} else {
		fmt.Fprintf(&b, "Ends at: %s\n", lottery.EndTime.Format("2006-01-02 15:04:05"))
	}
	if !lottery.HasSecret() {
		b.WriteString("\nTap the button below to join!")
	}
	return b.String()
}
