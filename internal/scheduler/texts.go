package scheduler

// Notification texts.
const (
	upcomingFmt    = "⚠️ Less than %[2]d minutes left until %[1]s!"
	occurredFmt    = "✅ Did you pray %s?"
	dateChangedFmt = "📅 The date has changed: %s"
)
