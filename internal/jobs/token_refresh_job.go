package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/internal/service"
)

// TokenRefreshJob sweeps accounts whose tokens are about to expire and
// refreshes them ahead of use. On-demand EnsureFresh still runs before
// every publish or info call; the sweep just keeps the common case warm.
type TokenRefreshJob struct {
	sa     repository.SocialAccountRepository
	tokens service.TokenService
}

func NewTokenRefreshJob(sa repository.SocialAccountRepository, tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sa:     sa,
		tokens: tokens,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	cutoff := time.Now().Add(30 * time.Minute)
	accounts, err := j.sa.ListExpiring(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := j.tokens.EnsureFresh(ctx, acc); err != nil {
				if errors.Is(err, platforms.ErrTokenRefresh) {
					// Already marked inactive; the user must reconnect.
					slog.Info("account needs reauthorization", "platform", acc.Platform, "account_id", acc.ID)
					return
				}
				slog.Info("unable to refresh tokens", "platform", acc.Platform, "account_id", acc.ID)
			}
		}(acc)
	}

	wg.Wait()
}
