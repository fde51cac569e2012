// Package mail is the outbound email collaborator. Delivery is best-effort:
// failures come back as error values so batch callers can keep processing
// their remaining recipients.
package mail

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer attempts delivery of a single message. Implementations must not
// panic on bad addresses; a failed send is an error value, nothing more.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
