package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/internal/transfer"
)

const publishConcurrencyLimit = 10

// PublishService fans a post out to its target accounts. Targets are
// independent: one platform's failure or slowness never blocks another's
// delivery, and every target gets its outcome recorded.
type PublishService interface {
	Publish(ctx context.Context, post *models.Post, content *transfer.PostContent, accounts []*models.SocialAccount) []*models.PostPlatform
}

type publishService struct {
	registry *platforms.Registry
	tokens   TokenService
	pp       repository.PostPlatformRepository
}

func NewPublishService(registry *platforms.Registry, tokens TokenService, pp repository.PostPlatformRepository) PublishService {
	return &publishService{
		registry: registry,
		tokens:   tokens,
		pp:       pp,
	}
}

func (s *publishService) Publish(ctx context.Context, post *models.Post, content *transfer.PostContent, accounts []*models.SocialAccount) []*models.PostPlatform {
	outcomes := make([]*models.PostPlatform, len(accounts))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, publishConcurrencyLimit)

	for i, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcome := s.publishOne(ctx, post, content, acc)
			if err := s.pp.RecordOutcome(ctx, outcome); err != nil {
				slog.Info(err.Error())
			}
			outcomes[i] = outcome
		}(i, acc)
	}

	wg.Wait()
	return outcomes
}

func (s *publishService) publishOne(ctx context.Context, post *models.Post, content *transfer.PostContent, acc *models.SocialAccount) *models.PostPlatform {
	outcome := &models.PostPlatform{
		PostID:      post.ID,
		AccountID:   acc.ID,
		Platform:    acc.Platform,
		AccountName: acc.AccountName,
	}

	if !acc.IsActive {
		outcome.Status = models.TargetStatusFailed
		outcome.ErrorMessage = "account is inactive"
		return outcome
	}

	client, err := s.registry.Resolve(acc.Platform)
	if err != nil {
		slog.Info(err.Error())
		outcome.Status = models.TargetStatusFailed
		outcome.ErrorMessage = "unsupported platform"
		return outcome
	}

	fresh, err := s.tokens.EnsureFresh(ctx, acc)
	if err != nil {
		slog.Info(err.Error())
		outcome.Status = models.TargetStatusFailed
		outcome.ErrorMessage = "reauthorization required"
		return outcome
	}

	result, err := client.Publish(ctx, fresh, content)
	if err != nil {
		// Configuration error, not a provider rejection.
		slog.Info(err.Error())
		outcome.Status = models.TargetStatusFailed
		outcome.ErrorMessage = "publish misconfigured"
		return outcome
	}

	if !result.Success {
		outcome.Status = models.TargetStatusFailed
		outcome.ErrorMessage = result.Error
		return outcome
	}

	outcome.Status = models.TargetStatusSuccess
	outcome.PlatformPostID = result.PlatformPostID
	return outcome
}
