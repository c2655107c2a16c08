package driven

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers outbound email through a relay.
type Mailer interface {
	// Enabled reports whether every required relay setting is present.
	Enabled() bool

	// Send delivers msg. Returns domain.ErrMailDisabled when not Enabled.
	Send(ctx context.Context, msg Message) error
}
