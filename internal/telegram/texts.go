package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/scheduler"
)

// Main menu buttons
const (
	btnToday    = "🕌 Today"
	btnNext     = "⏰ Next"
	btnTomorrow = "🕋 Tomorrow"
	btnPlace    = "🌍 Place"
)

// UI texts in English
const (
	startFmt = "Assalamu alaikum%s!\n\n" +
		"Your location: %s (%s).\n" +
		"I will remind you 20 minutes before every prayer and ask whether you prayed.\n\n" +
		"Use the buttons below to see the schedule or change the place."
	staleText       = "⚠️ Prayer times are temporarily unavailable. I will update the schedule shortly."
	fetchFailedText = "Failed to load prayer times, please try again.\nThank you."
	noProfileText   = "Profile not found. Please send /start."
	askPlaceText    = "Enter the name of your city or town."
	notFoundText    = "Nothing found. Check the spelling or try the nearest large city."
	ambiguousText   = "Several places match. Please add the region or country."
	searchErrText   = "Search failed, please try again.\nThank you."
	retryPlaceText  = "Let's try again.\nEnter the name of your city or town."
	noTimezoneText  = "Could not determine the time zone for this place. Please try later."
	placeSetFmt     = "Your location is set to %s (%s)."
	placeStaleFmt   = "Your location is set to %s (%s).\n" + staleText
	saveErrText     = "Could not save the location. Please try again later."
	unknownText     = "Use the buttons below."
	dayHeaderFmt    = "🕌 %s, %s\n\n"
	nextFmt         = "⏰ %s: next prayer %s at %s (%s)"
	confirmHeadFmt  = "Date: %s\nPrayers performed:\n\n"
	confirmFooter   = "\n«Whoever guides someone to goodness will have a reward like the one who did it.» (Sahih Muslim)"
	upcomingStatus  = "upcoming"
	noTimeText      = "--:--"
)

func startText(username, place string, offset int) string {
	greeting := ""
	if username != "" {
		greeting = ", " + username
	}
	return fmt.Sprintf(startFmt, greeting, place, domain.FormatOffset(offset))
}

func dayText(v scheduler.DayView) string {
	var b strings.Builder
	fmt.Fprintf(&b, dayHeaderFmt, v.Location.ShortName(), domain.FormatDate(v.Date))
	for _, p := range domain.Prayers {
		t, ok := v.Timings[p]
		if !ok {
			t = noTimeText
		}
		fmt.Fprintf(&b, "%s - %s\n", p, t)
	}
	return b.String()
}

func nextText(v scheduler.NextView) string {
	return fmt.Sprintf(nextFmt, v.Location.ShortName(), v.Prayer, v.Clock, domain.FormatDate(v.Date))
}

func confirmationText(c scheduler.Confirmation) string {
	var b strings.Builder
	date := noTimeText
	if !c.LocalDate.IsZero() {
		date = domain.FormatDate(c.LocalDate)
	}
	fmt.Fprintf(&b, confirmHeadFmt, date)
	for _, st := range c.Prayers {
		clock := noTimeText
		if st.Local != nil {
			clock = st.Local.Format("15:04")
		}
		status := upcomingStatus
		if c.Done(st.Prayer) {
			status = "✅"
		}
		fmt.Fprintf(&b, "%s - %s   %s\n", st.Prayer, clock, status)
	}
	b.WriteString(confirmFooter)
	return b.String()
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnToday),
			tgbotapi.NewKeyboardButton(btnNext),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnTomorrow),
			tgbotapi.NewKeyboardButton(btnPlace),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// Inline keyboards
func prayedKeyboard(p domain.Prayer) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", cbPrayedPrefix+p.Key()),
			tgbotapi.NewInlineKeyboardButtonData("No", cbNotPrayed),
		),
	)
}

func placeConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", cbPlaceYes),
			tgbotapi.NewInlineKeyboardButtonData("No", cbPlaceNo),
		),
	)
}
