package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/repository"
)

// AccountService covers the dashboard's account management: listing
// connections, toggling publishing, fetching live profile snapshots, and
// disconnecting. Disconnect removes only the credentials record; publish
// history keeps its snapshots.
type AccountService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	SetActive(ctx context.Context, userID, accountID int64, active bool) error
	Info(ctx context.Context, userID, accountID int64) (json.RawMessage, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	registry *platforms.Registry
	tokens   TokenService
	sa       repository.SocialAccountRepository
}

func NewAccountService(registry *platforms.Registry, tokens TokenService, sa repository.SocialAccountRepository) AccountService {
	return &accountService{
		registry: registry,
		tokens:   tokens,
		sa:       sa,
	}
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		err := errors.New("user id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	return s.sa.ListByUserID(ctx, userID)
}

func (s *accountService) SetActive(ctx context.Context, userID, accountID int64, active bool) error {
	if err := s.checkOwnership(ctx, userID, accountID); err != nil {
		return err
	}
	return s.sa.SetActive(ctx, accountID, active)
}

func (s *accountService) Info(ctx context.Context, userID, accountID int64) (json.RawMessage, error) {
	if err := s.checkOwnership(ctx, userID, accountID); err != nil {
		return nil, err
	}

	account, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errors.New("social account doesn't exist")
	}

	client, err := s.registry.Resolve(account.Platform)
	if err != nil {
		return nil, err
	}

	fresh, err := s.tokens.EnsureFresh(ctx, account)
	if err != nil {
		return nil, err
	}

	return client.AccountInfo(ctx, fresh)
}

func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	if err := s.checkOwnership(ctx, userID, accountID); err != nil {
		return err
	}

	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing account: %w", err)
	}
	return nil
}

func (s *accountService) checkOwnership(ctx context.Context, userID, accountID int64) error {
	if userID == 0 || accountID == 0 {
		err := errors.New("user id or account id is not valid")
		slog.Info(err.Error())
		return err
	}

	ok, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !ok {
		err = errors.New("social account doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}
