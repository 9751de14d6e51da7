package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/location"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/scheduler"
)

// Callback data of inline buttons.
const (
	cbPrayedPrefix = "prayed:"
	cbNotPrayed    = "not_prayed"
	cbPlaceYes     = "place_yes"
	cbPlaceNo      = "place_no"
)

// pendingSize bounds the number of chats with an unfinished location dialog.
const pendingSize = 1024

// BotAPI is the part of tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the scheduler surface behind the chat commands.
type Service interface {
	Initialize(ctx context.Context, chatID int64) (domain.User, error)
	Relocate(ctx context.Context, chatID int64, loc domain.Location, offset int) error
	MarkConfirmed(ctx context.Context, chatID int64, p domain.Prayer) (scheduler.Confirmation, error)
	Day(ctx context.Context, chatID int64, days int) (scheduler.DayView, error)
	Next(ctx context.Context, chatID int64) (scheduler.NextView, error)
}

// Locator resolves place names and their UTC offsets.
type Locator interface {
	Search(ctx context.Context, query string) (location.Result, error)
	Timezone(ctx context.Context, lat, lon float64) (int, error)
}

type dialogStep int

const (
	stepAwaitName dialogStep = iota + 1
	stepConfirm
)

// dialog is the in-memory state of a location change.
type dialog struct {
	step  dialogStep
	found domain.Location
}

// Router wires Telegram updates to handlers and holds the pending location dialogs.
type Router struct {
	bot     BotAPI
	log     *zap.Logger
	svc     Service
	loc     Locator
	pending *lru.Cache[int64, dialog]
}

// NewRouter creates a new Telegram router.
func NewRouter(bot BotAPI, log *zap.Logger, svc Service, loc Locator) (*Router, error) {
	pending, err := lru.New[int64, dialog](pendingSize)
	if err != nil {
		return nil, err
	}
	return &Router{
		bot:     bot,
		log:     log,
		svc:     svc,
		loc:     loc,
		pending: pending,
	}, nil
}

func (r *Router) setPending(chatID int64, d dialog) {
	r.pending.Add(chatID, d)
}

func (r *Router) getPending(chatID int64) (dialog, bool) {
	return r.pending.Get(chatID)
}

func (r *Router) clearPending(chatID int64) {
	r.pending.Remove(chatID)
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Text messages
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
			r.clearPending(chatID)
			r.handleStart(ctx, chatID, msg.From)
		case text == btnToday:
			r.clearPending(chatID)
			r.handleDay(ctx, chatID, 0)
		case text == btnTomorrow:
			r.clearPending(chatID)
			r.handleDay(ctx, chatID, 1)
		case text == btnNext:
			r.clearPending(chatID)
			r.handleNext(ctx, chatID)
		case text == btnPlace:
			r.askPlace(chatID)
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		chatID := cb.Message.Chat.ID
		data := cb.Data

		switch {
		case strings.HasPrefix(data, cbPrayedPrefix):
			r.handlePrayed(ctx, chatID, cb)
		case data == cbNotPrayed:
			r.answerCallback(cb.ID, "")
		case data == cbPlaceYes || data == cbPlaceNo:
			r.handlePlaceConfirm(ctx, chatID, cb, data == cbPlaceYes)
		default:
			// Unknown callback
			r.answerCallback(cb.ID, "")
		}
	}
}
