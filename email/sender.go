package email

import (
	"context"

	"github.com/rs/zerolog"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages to a single recipient.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// LogSender writes messages to the log instead of delivering them. It is the
// development and test default so the service runs without mail credentials.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender writing through logger.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, message Message) error {
	s.logger.Info().
		Str("to", message.To).
		Str("subject", message.Subject).
		Str("body", message.Body).
		Msg("email (log sender)")
	return nil
}
