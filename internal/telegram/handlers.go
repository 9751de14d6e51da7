package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/location"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/scheduler"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/store"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) editText(chatID int64, messageID int, text string) {
	if _, err := r.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		r.log.Warn("edit failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Debug("answer callback failed", zap.Error(err))
	}
}

func username(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	u, err := r.svc.Initialize(ctx, chatID)
	stale := errors.Is(err, scheduler.ErrScheduleStale)
	if err != nil && !stale {
		r.log.Error("Initialize failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "Profile initialization error. Please try again later.")
		return
	}
	text := startText(username(from), u.Location.ShortName(), u.UTCOffset)
	if stale {
		text += "\n\n" + staleText
	}
	r.sendMenu(chatID, text)
}

func (r *Router) handleDay(ctx context.Context, chatID int64, days int) {
	v, err := r.svc.Day(ctx, chatID, days)
	if err != nil {
		r.replyReadError(chatID, err)
		return
	}
	r.sendMenu(chatID, dayText(v))
}

func (r *Router) handleNext(ctx context.Context, chatID int64) {
	v, err := r.svc.Next(ctx, chatID)
	if err != nil {
		r.replyReadError(chatID, err)
		return
	}
	r.sendMenu(chatID, nextText(v))
}

func (r *Router) replyReadError(chatID int64, err error) {
	if errors.Is(err, store.ErrNotFound) {
		r.sendText(chatID, noProfileText)
		return
	}
	r.log.Error("timings view failed", zap.Error(err), zap.Int64("chatID", chatID))
	r.sendMenu(chatID, fetchFailedText)
}

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	d, ok := r.getPending(chatID)
	if !ok || d.step != stepAwaitName {
		r.sendMenu(chatID, unknownText)
		return
	}
	r.searchPlace(ctx, chatID, text)
}

// --- Prayer confirmation ---

func (r *Router) handlePrayed(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	p, err := domain.ParsePrayer(strings.TrimPrefix(cb.Data, cbPrayedPrefix))
	if err != nil {
		r.log.Warn("bad prayer callback", zap.String("data", cb.Data))
		return
	}
	c, err := r.svc.MarkConfirmed(ctx, chatID, p)
	if errors.Is(err, store.ErrNotFound) {
		r.sendText(chatID, noProfileText)
		return
	}
	if err != nil {
		r.log.Error("MarkConfirmed failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}

	text := confirmationText(c)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Share", "https://t.me/share/url?url=&text="+url.QueryEscape(text)),
		),
	)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// --- Location flow ---

func (r *Router) askPlace(chatID int64) {
	r.setPending(chatID, dialog{step: stepAwaitName})
	msg := tgbotapi.NewMessage(chatID, askPlaceText)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) searchPlace(ctx context.Context, chatID int64, query string) {
	res, err := r.loc.Search(ctx, query)
	if err != nil {
		r.log.Error("place search failed", zap.Error(err), zap.String("query", query))
		r.sendText(chatID, searchErrText)
		return
	}
	switch res.Status {
	case location.StatusNotFound:
		r.sendText(chatID, notFoundText)
	case location.StatusAmbiguous:
		r.sendText(chatID, ambiguousText)
	case location.StatusFound:
		r.setPending(chatID, dialog{step: stepConfirm, found: res.Location})
		msg := tgbotapi.NewMessage(chatID, res.Location.Name)
		msg.ReplyMarkup = placeConfirmKeyboard()
		if _, err := r.bot.Send(msg); err != nil {
			r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
		}
	}
}

func (r *Router) handlePlaceConfirm(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery, yes bool) {
	r.answerCallback(cb.ID, "")
	d, ok := r.getPending(chatID)
	if !ok || d.step != stepConfirm {
		return
	}
	messageID := cb.Message.MessageID

	if !yes {
		r.setPending(chatID, dialog{step: stepAwaitName})
		r.editText(chatID, messageID, retryPlaceText)
		return
	}
	r.clearPending(chatID)

	loc := d.found
	offset, err := r.loc.Timezone(ctx, loc.Lat, loc.Lon)
	if err != nil {
		if !errors.Is(err, location.ErrNoTimezone) {
			r.log.Error("timezone lookup failed", zap.Error(err), zap.Int64("chatID", chatID))
		}
		r.editText(chatID, messageID, noTimezoneText)
		r.sendMenu(chatID, unknownText)
		return
	}

	err = r.svc.Relocate(ctx, chatID, loc, offset)
	switch {
	case errors.Is(err, scheduler.ErrScheduleStale):
		r.editText(chatID, messageID, fmt.Sprintf(placeStaleFmt, loc.ShortName(), domain.FormatOffset(offset)))
	case err != nil:
		r.log.Error("Relocate failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.editText(chatID, messageID, saveErrText)
		r.sendMenu(chatID, unknownText)
		return
	default:
		r.editText(chatID, messageID, fmt.Sprintf(placeSetFmt, loc.ShortName(), domain.FormatOffset(offset)))
	}
	r.sendMenu(chatID, startText(username(cb.From), loc.ShortName(), offset))
}
