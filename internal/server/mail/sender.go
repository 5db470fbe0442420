// Package mail renders account emails and hands them to a delivery backend.
package mail

//go:generate mockgen -source=sender.go -destination=../../mocks/mail_sender_mock.go -package=mocks

import "context"

// Message is one outgoing HTML email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers a Message. Implementations must honor ctx deadlines.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
