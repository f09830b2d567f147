package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func encryptedAccount(t *testing.T, expiresAt time.Time) *models.SocialAccount {
	t.Helper()

	access, err := utils.Encrypt([]byte("plain-access"), []byte(testConfig.SecretKey))
	assert.NoError(t, err)
	refresh, err := utils.Encrypt([]byte("plain-refresh"), []byte(testConfig.SecretKey))
	assert.NoError(t, err)

	return &models.SocialAccount{
		ID:             3,
		UserID:         42,
		Platform:       "fakegram",
		AccountID:      "acc-1",
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: expiresAt,
		IsActive:       true,
	}
}

func TestEnsureFreshValidToken(t *testing.T) {
	client := new(MockPlatformClient)
	repo := new(MockSocialAccountRepository)
	ts := NewTokenService(testConfig, newTestRegistry("fakegram", client), repo)

	account := encryptedAccount(t, time.Now().Add(2*time.Hour))

	fresh, err := ts.EnsureFresh(context.Background(), account)
	assert.NoError(t, err)
	assert.Equal(t, "plain-access", fresh.AccessToken)
	assert.Equal(t, "plain-refresh", fresh.RefreshToken)

	// A token with plenty of life left never touches the provider.
	client.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateTokens", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureFreshExpiringToken(t *testing.T) {
	account := encryptedAccount(t, time.Now().Add(5*time.Minute))
	newExpiry := time.Now().Add(time.Hour)

	client := new(MockPlatformClient)
	client.On("Refresh", mock.Anything, mock.AnythingOfType("*models.SocialAccount")).
		Run(func(args mock.Arguments) {
			// The adapter must see the decrypted credentials.
			plain := args.Get(1).(*models.SocialAccount)
			assert.Equal(t, "plain-access", plain.AccessToken)
			assert.Equal(t, "plain-refresh", plain.RefreshToken)
		}).
		Return(&models.SocialAccount{
			ID:             account.ID,
			Platform:       "fakegram",
			AccessToken:    "renewed-access",
			RefreshToken:   "renewed-refresh",
			TokenExpiresAt: newExpiry,
		}, nil).Once()

	repo := new(MockSocialAccountRepository)
	repo.On("UpdateTokens", mock.Anything, account.ID, mock.AnythingOfType("string"), mock.AnythingOfType("string"), newExpiry).
		Run(func(args mock.Arguments) {
			// Persisted tokens go back encrypted.
			access, err := utils.Decrypt(args.String(2), []byte(testConfig.SecretKey))
			assert.NoError(t, err)
			assert.Equal(t, "renewed-access", access)
		}).
		Return(nil).Once()

	ts := NewTokenService(testConfig, newTestRegistry("fakegram", client), repo)

	fresh, err := ts.EnsureFresh(context.Background(), account)
	assert.NoError(t, err)
	assert.Equal(t, "renewed-access", fresh.AccessToken)
	assert.Equal(t, "renewed-refresh", fresh.RefreshToken)

	client.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestEnsureFreshConfiguredMargin(t *testing.T) {
	// Expires in 1h: fine under the default 30m margin, stale under 2h.
	account := encryptedAccount(t, time.Now().Add(time.Hour))

	client := new(MockPlatformClient)
	client.On("Refresh", mock.Anything, mock.Anything).
		Return(&models.SocialAccount{
			ID:             account.ID,
			Platform:       "fakegram",
			AccessToken:    "renewed-access",
			RefreshToken:   "renewed-refresh",
			TokenExpiresAt: time.Now().Add(48 * time.Hour),
		}, nil).Once()

	repo := new(MockSocialAccountRepository)
	repo.On("UpdateTokens", mock.Anything, account.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	wideMargin := testConfig
	wideMargin.TokenRefreshMargin = 2 * time.Hour
	ts := NewTokenService(wideMargin, newTestRegistry("fakegram", client), repo)

	fresh, err := ts.EnsureFresh(context.Background(), account)
	assert.NoError(t, err)
	assert.Equal(t, "renewed-access", fresh.AccessToken)
	client.AssertExpectations(t)
}

func TestEnsureFreshRefreshRejected(t *testing.T) {
	account := encryptedAccount(t, time.Now().Add(-time.Hour))

	client := new(MockPlatformClient)
	client.On("Refresh", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: invalid_grant", platforms.ErrTokenRefresh))

	repo := new(MockSocialAccountRepository)
	repo.On("SetActive", mock.Anything, account.ID, false).Return(nil).Once()

	ts := NewTokenService(testConfig, newTestRegistry("fakegram", client), repo)

	_, err := ts.EnsureFresh(context.Background(), account)
	assert.True(t, errors.Is(err, platforms.ErrTokenRefresh))

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateTokens", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureFreshTransientRefreshError(t *testing.T) {
	account := encryptedAccount(t, time.Now().Add(-time.Hour))

	client := new(MockPlatformClient)
	client.On("Refresh", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	repo := new(MockSocialAccountRepository)
	ts := NewTokenService(testConfig, newTestRegistry("fakegram", client), repo)

	_, err := ts.EnsureFresh(context.Background(), account)
	assert.Error(t, err)

	// Only a provider rejection deactivates the account.
	repo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureFreshCorruptCiphertext(t *testing.T) {
	ts := NewTokenService(testConfig, platforms.NewRegistry(testConfig), new(MockSocialAccountRepository))

	_, err := ts.EnsureFresh(context.Background(), &models.SocialAccount{
		AccessToken:    "not-base64!!",
		TokenExpiresAt: time.Now().Add(2 * time.Hour),
	})
	assert.Error(t, err)
}
