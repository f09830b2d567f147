package service

import (
	"context"
	"errors"
	"log/slog"

	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/pkg/utils"
)

// CallbackStatus classifies an OAuth callback so the handler can pick the
// right redirect without ever seeing provider error text.
type CallbackStatus int

const (
	CallbackSuccess CallbackStatus = iota
	CallbackDenied
	CallbackMissingParams
	CallbackFailed
)

type CallbackResult struct {
	Status   CallbackStatus
	Platform string
	// Reason carries the provider's denial code for CallbackDenied; it is
	// a coarse category string, never free-form provider text.
	Reason  string
	Account *models.SocialAccount
}

type ConnectService interface {
	Initiate(ctx context.Context, userID int64, platform string) (string, error)
	CompleteCallback(ctx context.Context, platform, code, state, providerError string) CallbackResult
}

type connectService struct {
	cfg      config.Config
	registry *platforms.Registry
	sa       repository.SocialAccountRepository
}

func NewConnectService(cfg config.Config, registry *platforms.Registry, sa repository.SocialAccountRepository) ConnectService {
	return &connectService{
		cfg:      cfg,
		registry: registry,
		sa:       sa,
	}
}

func (s *connectService) Initiate(ctx context.Context, userID int64, platform string) (string, error) {
	if userID == 0 {
		return "", errors.New("user id is not valid")
	}

	client, err := s.registry.Resolve(platform)
	if err != nil {
		return "", err
	}

	return client.AuthURL(userID), nil
}

// CompleteCallback drives the provider callback to one of four outcomes:
// denied, missing parameters, failed, or a reconciled stored account.
func (s *connectService) CompleteCallback(ctx context.Context, platform, code, state, providerError string) CallbackResult {
	if providerError != "" {
		return CallbackResult{Status: CallbackDenied, Platform: platform, Reason: providerError}
	}

	if code == "" || state == "" {
		return CallbackResult{Status: CallbackMissingParams, Platform: platform}
	}

	client, err := s.registry.Resolve(platform)
	if err != nil {
		slog.Info(err.Error())
		return CallbackResult{Status: CallbackFailed, Platform: platform}
	}

	candidate, err := client.ExchangeCallback(ctx, code, state)
	if err != nil {
		slog.Info(err.Error())
		return CallbackResult{Status: CallbackFailed, Platform: platform}
	}

	if err := s.encryptTokens(candidate); err != nil {
		slog.Info(err.Error())
		return CallbackResult{Status: CallbackFailed, Platform: platform}
	}

	stored, err := s.sa.Upsert(ctx, candidate)
	if err != nil {
		slog.Info(err.Error())
		return CallbackResult{Status: CallbackFailed, Platform: platform}
	}

	return CallbackResult{Status: CallbackSuccess, Platform: platform, Account: stored}
}

func (s *connectService) encryptTokens(sa *models.SocialAccount) error {
	encryptedAccess, err := utils.Encrypt([]byte(sa.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	sa.AccessToken = encryptedAccess

	if sa.RefreshToken != "" {
		encryptedRefresh, err := utils.Encrypt([]byte(sa.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
		sa.RefreshToken = encryptedRefresh
	}

	return nil
}
