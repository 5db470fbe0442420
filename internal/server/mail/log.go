package mail

import (
	"context"

	"github.com/dmitrijs2005/idkeeper/internal/logging"
)

// LogSender stands in for SMTP in development. Only the recipient and
// subject are logged; bodies carry reset tokens.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "mail")}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.logger.Info(ctx, "Email not delivered, no SMTP relay configured", "to", m.To, "subject", m.Subject)
	return nil
}
