package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of delivering them. It is
// the default transport in dev and in deployments where delivery is
// handled by a downstream relay reading the same queue.
type LogSender struct {
	Log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{Log: log}
}

func (s *LogSender) Send(ctx context.Context, address, templateID string, payload Payload) error {
	ev := s.Log.Info().Str("to", address).Str("template", templateID)
	for k, v := range payload {
		ev = ev.Str(k, v)
	}
	ev.Msg("mail dispatched")
	return nil
}
