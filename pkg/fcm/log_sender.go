package fcm

import (
	"context"

	notifdomain "fled-backend/internal/notification/domain"
	"fled-backend/pkg/logger"

	"github.com/rs/zerolog"
)

// LogSender reports every token as delivered without contacting FCM. It backs
// local runs that have no Firebase credentials.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{logger: log.With().Str("component", "fcm_log").Logger()}
}

func (s *LogSender) SendMulticast(_ context.Context, payload notifdomain.Payload, tokens []string) ([]notifdomain.SendResult, error) {
	if len(tokens) > MaxMulticastTokens {
		return nil, ErrTooManyTokens
	}
	results := make([]notifdomain.SendResult, len(tokens))
	for i, t := range tokens {
		s.logger.Info().Str("token", logger.ShortToken(t)).Str("title", payload.Title).Msg("would send notification")
		results[i] = notifdomain.SendResult{Token: t, Success: true}
	}
	return results, nil
}
