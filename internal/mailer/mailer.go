// Package mailer hands outgoing account mail to a delivery backend. Only a
// logging backend ships here; real delivery is wired by deployment.
package mailer

import (
	"context"
	"log"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records each message on a logger instead of sending it. Bodies
// carry reset tokens, so only their size is logged.
type LogMailer struct {
	From   string
	Logger *log.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.Logger.Printf("mail from=%s to=%s subject=%q body=%d bytes", m.From, msg.To, msg.Subject, len(msg.Body))
	return nil
}
