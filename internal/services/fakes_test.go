package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nightcrane/lotterybot/internal/messaging"
	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/pkg/drand"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeLotteryRepo is an in-memory LotteryRepository with the same atomicity
// contract as the mongo implementation.
type fakeLotteryRepo struct {
	mu        sync.Mutex
	lotteries map[primitive.ObjectID]*models.Lottery
}

func newFakeLotteryRepo() *fakeLotteryRepo {
	return &fakeLotteryRepo{lotteries: map[primitive.ObjectID]*models.Lottery{}}
}

func copyLottery(l *models.Lottery) *models.Lottery {
	c := *l
	c.Participants = append([]int64(nil), l.Participants...)
	c.Winners = append([]int64(nil), l.Winners...)
	return &c
}

func (r *fakeLotteryRepo) Create(ctx context.Context, lottery *models.Lottery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lottery.ID = primitive.NewObjectID()
	lottery.IsEnded = false
	if lottery.Participants == nil {
		lottery.Participants = []int64{}
	}
	lottery.CreatedAt = time.Now()
	lottery.UpdatedAt = time.Now()
	r.lotteries[lottery.ID] = copyLottery(lottery)
	return nil
}

func (r *fakeLotteryRepo) FindByID(ctx context.Context, id primitive.ObjectID, chatID *int64) (*models.Lottery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotteries[id]
	if !ok || (chatID != nil && l.ChatID != *chatID) {
		return nil, nil
	}
	return copyLottery(l), nil
}

func (r *fakeLotteryRepo) FindUnended(ctx context.Context) ([]*models.Lottery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Lottery
	for _, l := range r.lotteries {
		if !l.IsEnded {
			out = append(out, copyLottery(l))
		}
	}
	return out, nil
}

func (r *fakeLotteryRepo) Update(ctx context.Context, id primitive.ObjectID, chatID *int64, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotteries[id]
	if !ok || (chatID != nil && l.ChatID != *chatID) {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "winners":
			l.Winners = append([]int64(nil), v.([]int64)...)
		case "announceMessageId":
			l.AnnounceMessageID = v.(int)
		}
	}
	l.UpdatedAt = time.Now()
	return nil
}

func (r *fakeLotteryRepo) MarkEnded(ctx context.Context, id primitive.ObjectID, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lotteries[id]; ok && l.ChatID == chatID {
		l.IsEnded = true
	}
	return nil
}

func (r *fakeLotteryRepo) AddParticipant(ctx context.Context, id primitive.ObjectID, chatID *int64, userID int64) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotteries[id]
	if !ok || l.IsEnded || (chatID != nil && l.ChatID != *chatID) {
		return false, 0, nil
	}
	for _, p := range l.Participants {
		if p == userID {
			return false, 0, nil
		}
	}
	if l.MaxParticipants > 0 && len(l.Participants) >= l.MaxParticipants {
		return false, 0, nil
	}
	l.Participants = append(l.Participants, userID)
	return true, len(l.Participants), nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type attachedButton struct {
	chatID    int64
	messageID int
	lotteryID string
}

// fakeMessenger records outbound traffic and can simulate unreachable chats
type fakeMessenger struct {
	mu            sync.Mutex
	sent          []sentMessage
	buttons       []attachedButton
	failFor       map[int64]bool
	memberships   map[int64]map[int64]messaging.MemberStatus
	membershipErr error
	nextMessageID int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		failFor:     map[int64]bool{},
		memberships: map[int64]map[int64]messaging.MemberStatus{},
	}
}

func (m *fakeMessenger) Send(ctx context.Context, chatID int64, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[chatID] {
		return 0, errors.New("chat unreachable")
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	m.nextMessageID++
	return m.nextMessageID, nil
}

func (m *fakeMessenger) Reply(ctx context.Context, chatID int64, reply messaging.Reply) error {
	_, err := m.Send(ctx, chatID, reply.Text)
	return err
}

func (m *fakeMessenger) AttachJoinButton(ctx context.Context, chatID int64, messageID int, lotteryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttons = append(m.buttons, attachedButton{chatID: chatID, messageID: messageID, lotteryID: lotteryID})
	return nil
}

func (m *fakeMessenger) GetMembership(ctx context.Context, chatID, userID int64) (messaging.MemberStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.membershipErr != nil {
		return "", m.membershipErr
	}
	if users, ok := m.memberships[chatID]; ok {
		if status, ok := users[userID]; ok {
			return status, nil
		}
	}
	return messaging.StatusLeft, nil
}

func (m *fakeMessenger) BotID() int64    { return 999 }
func (m *fakeMessenger) BotName() string { return "lotterybot" }

func (m *fakeMessenger) allow(chatID int64, userIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.memberships[chatID] == nil {
		m.memberships[chatID] = map[int64]messaging.MemberStatus{}
	}
	for _, id := range userIDs {
		m.memberships[chatID][id] = messaging.StatusMember
	}
}

func (m *fakeMessenger) messagesTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

func (m *fakeMessenger) countContaining(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if strings.Contains(s.text, substr) {
			n++
		}
	}
	return n
}

// fakeBeacon serves a fixed round without touching the network
type fakeBeacon struct {
	round *drand.Round
	err   error
}

func (b *fakeBeacon) Latest(ctx context.Context) (*drand.Round, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.round, nil
}

// testSeed is 32 bytes of hex, the size of a real drand randomness value
const testSeed = "4a0c1467d991d4f55d6a21788d6f90c38a6b7de45a41d8f0a1e42ae0adff1a1c"

func newFakeBeacon() *fakeBeacon {
	return &fakeBeacon{round: &drand.Round{Round: 4642601, Randomness: testSeed}}
}

// fakeScheduler records armed deadlines
type fakeScheduler struct {
	mu    sync.Mutex
	armed map[primitive.ObjectID]time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: map[primitive.ObjectID]time.Time{}}
}

func (s *fakeScheduler) Start() {}

func (s *fakeScheduler) Arm(lotteryID primitive.ObjectID, chatID int64, fireAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed[lotteryID] = fireAt
	return nil
}

func (s *fakeScheduler) Recover(ctx context.Context) error { return nil }
func (s *fakeScheduler) Shutdown() error                   { return nil }

// fakeDrawService counts draw invocations
type fakeDrawService struct {
	mu    sync.Mutex
	draws []primitive.ObjectID
}

func (d *fakeDrawService) Draw(ctx context.Context, lotteryID primitive.ObjectID, chatID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = append(d.draws, lotteryID)
	return nil
}
