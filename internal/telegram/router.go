package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nightcrane/lotterybot/internal/models"
	"github.com/nightcrane/lotterybot/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Router consumes Telegram updates and dispatches them to the wizard and
// join services
type Router struct {
	bot           *Bot
	wizard        services.WizardService
	joins         services.JoinService
	updateTimeout int
	workerCount   int
}

// NewRouter creates a new Router
func NewRouter(bot *Bot, wizard services.WizardService, joins services.JoinService, updateTimeout, workerCount int) *Router {
	if workerCount <= 0 {
		workerCount = 10
	}
	return &Router{
		bot:           bot,
		wizard:        wizard,
		joins:         joins,
		updateTimeout: updateTimeout,
		workerCount:   workerCount,
	}
}

// Run long-polls for updates until ctx is cancelled, handling them on a small
// worker pool
func (r *Router) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.updateTimeout
	updates := r.bot.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for update := range updates {
				r.handleUpdate(ctx, update)
			}
		}()
	}

	<-ctx.Done()
	r.bot.api.StopReceivingUpdates()
	wg.Wait()
}

func (r *Router) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	user := models.Creator{ID: msg.From.ID, Name: displayName(msg.From)}

	if msg.IsCommand() {
		switch msg.Command() {
		case "lottery":
			r.handleLotteryCommand(ctx, msg, user)
		case "cancel":
			r.wizard.Cancel(user.ID)
			r.reply(ctx, msg.Chat.ID, "Cancelled.")
		case "info":
			r.reply(ctx, msg.Chat.ID, fmt.Sprintf("This chat's id is %d", msg.Chat.ID))
		case "start":
			r.reply(ctx, msg.Chat.ID, "Hi! Send /lottery in this private chat to create a lottery, or /lottery p <lottery_id>:<token> to join one by token.")
		}
		return
	}

	// Plain text only matters while a creation conversation is in flight
	if msg.Chat.IsPrivate() && r.wizard.Active(user.ID) {
		reply := r.wizard.Advance(ctx, user, msg.Text)
		if err := r.bot.Reply(ctx, msg.Chat.ID, reply); err != nil {
			slog.Error("failed to send wizard reply", "chatId", msg.Chat.ID, "error", err)
		}
	}
}

// handleLotteryCommand is the conversation entry point. Without arguments it
// starts the creation wizard; with "p <id>:<token>" it is a token join. Both
// are only valid in a private chat.
func (r *Router) handleLotteryCommand(ctx context.Context, msg *tgbotapi.Message, user models.Creator) {
	if !msg.Chat.IsPrivate() {
		r.reply(ctx, msg.Chat.ID, "Please use this command in a private chat with me.")
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) > 0 && args[0] == "p" {
		r.handleTokenJoin(ctx, msg.Chat.ID, user.ID, args)
		return
	}

	reply := r.wizard.Start(ctx, user)
	if err := r.bot.Reply(ctx, msg.Chat.ID, reply); err != nil {
		slog.Error("failed to send wizard prompt", "chatId", msg.Chat.ID, "error", err)
	}
}

func (r *Router) handleTokenJoin(ctx context.Context, chatID, userID int64, args []string) {
	const usage = "Usage: /lottery p <lottery_id>:<token>\nFor example: /lottery p 64f1c0ffee:my_secret_token"
	if len(args) != 2 {
		r.reply(ctx, chatID, usage)
		return
	}
	idStr, token, ok := strings.Cut(args[1], ":")
	if !ok {
		r.reply(ctx, chatID, usage)
		return
	}
	lotteryID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		r.reply(ctx, chatID, "Invalid lottery id.")
		return
	}

	reply, err := r.joins.JoinByToken(ctx, lotteryID, token, userID)
	if err != nil {
		slog.Error("token join failed", "lotteryId", lotteryID.Hex(), "error", err)
		reply = "Something went wrong, please try again."
	}
	r.reply(ctx, chatID, reply)
}

func (r *Router) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	payload, err := decodeCallback(cq.Data)
	if err != nil {
		slog.Warn("ignoring callback", "error", err)
		return
	}

	switch p := payload.(type) {
	case JoinLottery:
		if cq.Message == nil {
			return
		}
		reply, err := r.joins.JoinByButton(ctx, p.LotteryID, cq.Message.Chat.ID, cq.From.ID)
		if err != nil {
			slog.Error("button join failed", "lotteryId", p.LotteryID.Hex(), "error", err)
			reply = "Something went wrong, please try again."
		}
		if _, err := r.bot.api.Request(tgbotapi.NewCallback(cq.ID, reply)); err != nil {
			slog.Error("failed to answer callback", "error", err)
		}
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.bot.Send(ctx, chatID, text); err != nil {
		slog.Error("failed to send reply", "chatId", chatID, "error", err)
	}
}

func displayName(u *tgbotapi.User) string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}
