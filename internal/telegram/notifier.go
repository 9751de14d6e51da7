package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
)

// Notifier delivers scheduler notifications. It satisfies scheduler.Sender.
type Notifier struct {
	bot BotAPI
}

func NewNotifier(bot BotAPI) *Notifier {
	return &Notifier{bot: bot}
}

// Send delivers msg; a Confirm message gets the yes/no keyboard for its prayer.
// tgbotapi takes no context, so the call runs aside and Send returns ctx.Err()
// once ctx is done. The abandoned request is still bounded by the bot's HTTP client timeout.
func (n *Notifier) Send(ctx context.Context, chatID int64, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := tgbotapi.NewMessage(chatID, msg.Text)
	if msg.Confirm {
		m.ReplyMarkup = prayedKeyboard(msg.Prayer)
	}

	done := make(chan error, 1)
	go func() {
		_, err := n.bot.Send(m)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendText sends a plain text message, used for the admin start-up notice.
func (n *Notifier) SendText(chatID int64, text string) error {
	_, err := n.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
