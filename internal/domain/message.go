package domain

// Message is a notification about Prayer handed to the delivery channel.
// When Confirm is set the channel attaches a yes/no action for Prayer.
type Message struct {
	Text    string
	Confirm bool
	Prayer  Prayer
}
