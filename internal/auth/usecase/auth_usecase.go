package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "fled-backend/internal/auth/domain"
	"fled-backend/internal/auth/verifier"
	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"

	"github.com/rs/zerolog"
)

const defaultDevice = "web"

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	verifier     verifier.Verifier
	userRepo     schoolrepo.UserRepository
	remover      TokenRemover
	requiredRole string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAuthUsecase creates a new instance of authUsecase. An empty requiredRole
// admits every verified principal; remover may be nil.
func NewAuthUsecase(v verifier.Verifier, userRepo schoolrepo.UserRepository, remover TokenRemover, requiredRole string, logger zerolog.Logger) AuthUsecase {
	return &authUsecase{
		verifier:     v,
		userRepo:     userRepo,
		remover:      remover,
		requiredRole: requiredRole,
		logger:       logger.With().Str("component", "auth").Logger(),
		now:          time.Now,
	}
}

func (u *authUsecase) ValidateToken(ctx context.Context, token string) (*authdomain.Identity, error) {
	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if identity.Role == "" || identity.Email == "" {
		user, err := u.userRepo.FindByID(ctx, identity.UID)
		if err != nil {
			u.logger.Warn().Err(err).Str("uid", identity.UID).Msg("error loading user profile")
		}
		if user != nil {
			if identity.Role == "" {
				identity.Role = user.Role
			}
			if identity.Email == "" {
				identity.Email = user.Email
			}
		}
	}
	return identity, nil
}

func (u *authUsecase) Authorized(identity *authdomain.Identity) bool {
	if identity == nil {
		return false
	}
	return u.requiredRole == "" || identity.Role == u.requiredRole
}

func (u *authUsecase) RegisterFCMToken(ctx context.Context, uid, token, device string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	if device == "" {
		device = defaultDevice
	}

	record := schooldomain.TokenRecord{
		Token:   token,
		Device:  device,
		AddedAt: u.now().UTC().Format(time.RFC3339),
	}
	if err := u.userRepo.AddToken(ctx, uid, record); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	u.logger.Info().Str("uid", uid).Str("device", device).Msg("registered device token")
	return nil
}

// UnregisterFCMToken drops token from the caller's own record. The store-wide
// cleanup only runs for a token the caller actually held.
func (u *authUsecase) UnregisterFCMToken(ctx context.Context, uid, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	removed, err := u.userRepo.RemoveToken(ctx, uid, token)
	if err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	if !removed {
		user, err := u.userRepo.FindByID(ctx, uid)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		removed = user != nil && strings.TrimSpace(user.FCMToken) == token
	}
	if !removed {
		u.logger.Warn().Str("uid", uid).Msg("token not owned by caller, skipping cleanup")
		return nil
	}

	if u.remover != nil {
		u.remover.RemoveToken(ctx, token)
	}
	return nil
}

func (u *authUsecase) TokenCount(ctx context.Context, uid string) (int, error) {
	user, err := u.userRepo.FindByID(ctx, uid)
	if err != nil {
		return 0, err
	}
	return len(user.DeliveryTokens()), nil
}
