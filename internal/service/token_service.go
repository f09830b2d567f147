package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/pkg/utils"
)

// DefaultRefreshMargin is how close to expiry a token may get before any
// use forces a refresh first. Override through config.TokenRefreshMargin.
const DefaultRefreshMargin = 30 * time.Minute

type TokenService interface {
	// EnsureFresh returns a copy of the account whose tokens are decrypted
	// and valid for at least the refresh margin, refreshing and persisting
	// first when needed. On refresh rejection the stored account is marked
	// inactive and the error wraps platforms.ErrTokenRefresh; the caller
	// must send the user back through authorization, not retry.
	EnsureFresh(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error)
}

type tokenService struct {
	cfg      config.Config
	registry *platforms.Registry
	sa       repository.SocialAccountRepository
	margin   time.Duration
}

func NewTokenService(cfg config.Config, registry *platforms.Registry, sa repository.SocialAccountRepository) TokenService {
	margin := cfg.TokenRefreshMargin
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &tokenService{
		cfg:      cfg,
		registry: registry,
		sa:       sa,
		margin:   margin,
	}
}

func (s *tokenService) EnsureFresh(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error) {
	plain, err := s.decryptTokens(account)
	if err != nil {
		return nil, err
	}

	if account.TokenExpiresAt.After(time.Now().Add(s.margin)) {
		return plain, nil
	}

	client, err := s.registry.Resolve(account.Platform)
	if err != nil {
		return nil, err
	}

	refreshed, err := client.Refresh(ctx, plain)
	if err != nil {
		if errors.Is(err, platforms.ErrTokenRefresh) {
			// Rejection is permanent until the user reauthorizes.
			if updateErr := s.sa.SetActive(ctx, account.ID, false); updateErr != nil {
				slog.Info(updateErr.Error())
			}
		}
		return nil, err
	}

	if err := s.persistTokens(ctx, account.ID, refreshed); err != nil {
		return nil, err
	}

	return refreshed, nil
}

func (s *tokenService) decryptTokens(account *models.SocialAccount) (*models.SocialAccount, error) {
	plain := *account

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("decrypting access token: %w", err)
	}
	plain.AccessToken = accessToken

	if account.RefreshToken != "" {
		refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, fmt.Errorf("decrypting refresh token: %w", err)
		}
		plain.RefreshToken = refreshToken
	}

	return &plain, nil
}

// persistTokens stores the refreshed credentials encrypted. Concurrent
// refreshes of the same account are fine: each call holds a valid
// provider-issued token and the last write wins.
func (s *tokenService) persistTokens(ctx context.Context, accountID int64, refreshed *models.SocialAccount) error {
	encryptedAccess, err := utils.Encrypt([]byte(refreshed.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	var encryptedRefresh string
	if refreshed.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(refreshed.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	return s.sa.UpdateTokens(ctx, accountID, encryptedAccess, encryptedRefresh, refreshed.TokenExpiresAt)
}
