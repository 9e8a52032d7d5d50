package usecase

import (
	"context"
	"fmt"

	schoolrepo "fled-backend/internal/school/repository"
	"fled-backend/pkg/logger"

	"github.com/rs/zerolog"
)

// TokenSanitizer removes stale delivery tokens from every documented storage
// shape: devices subcollection records and legacy fcmToken fields on users and
// parents. Cleanup is advisory; it never returns an error.
type TokenSanitizer struct {
	devices schoolrepo.DeviceRepository
	users   schoolrepo.UserRepository
	parents schoolrepo.ParentRepository
	logger  zerolog.Logger
}

// NewTokenSanitizer creates a TokenSanitizer
func NewTokenSanitizer(devices schoolrepo.DeviceRepository, users schoolrepo.UserRepository, parents schoolrepo.ParentRepository, logger zerolog.Logger) *TokenSanitizer {
	return &TokenSanitizer{
		devices: devices,
		users:   users,
		parents: parents,
		logger:  logger.With().Str("component", "sanitizer").Logger(),
	}
}

// Purge attempts every removal for every token, logging and continuing past
// failures.
func (s *TokenSanitizer) Purge(ctx context.Context, tokens []string) {
	for _, token := range uniqueNonEmpty(tokens) {
		log := s.logger.With().Str("token", logger.ShortToken(token)).Logger()

		s.attempt(log, "devices", func() (int, error) { return s.devices.DeleteByToken(ctx, token) })
		s.attempt(log, "users.fcmToken", func() (int, error) { return s.users.ClearLegacyToken(ctx, token) })
		s.attempt(log, "parents.fcmToken", func() (int, error) { return s.parents.ClearLegacyToken(ctx, token) })
	}
}

func (s *TokenSanitizer) attempt(log zerolog.Logger, target string, fn func() (int, error)) {
	var (
		n   int
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		n, err = fn()
	}()

	if err != nil {
		log.Warn().Err(err).Str("target", target).Msg("error cleaning up token")
	}
	if n > 0 {
		log.Info().Int("removed", n).Str("target", target).Msg("removed stale token")
	}
}
