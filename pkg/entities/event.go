package entities

// Sender identifies the telegram user behind an inbound event.
type Sender struct {
	TgID     int64
	Username string
}

// Command is a parsed bot command, like /ban 42 2 spam.
type Command struct {
	Sender Sender
	ChatID int64
	Name   string
	Args   []string
}

// Callback is a pressed inline keyboard button.
type Callback struct {
	Sender Sender
	ChatID int64

	// MessageID is the message carrying the pressed keyboard
	MessageID int

	Data string
}

// Inbound is a non-command message from a private chat. BurstID is the
// telegram media group id, empty for standalone messages. At most one of
// Text and Attachment is meaningful: telegram delivers media with a
// caption, never with text.
type Inbound struct {
	Sender     Sender
	ChatID     int64
	MessageID  int
	BurstID    string
	Text       string
	Caption    string
	Attachment *Attachment
}

// Button is one inline keyboard button: a visible label and the callback
// data reported back when it is pressed.
type Button struct {
	Label string
	Data  string
}
