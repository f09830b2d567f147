package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/transfer"
	"github.com/stretchr/testify/mock"
)

var testConfig = config.Config{
	SecretKey:   strings.Repeat("k", 32),
	FrontendURL: "http://localhost:5173",
}

// --- Mocks ---

// MockPlatformClient is a mock implementing the platforms.Client interface.
type MockPlatformClient struct {
	mock.Mock
}

func (m *MockPlatformClient) AuthURL(userID int64) string {
	args := m.Called(userID)
	return args.String(0)
}

func (m *MockPlatformClient) ExchangeCallback(ctx context.Context, code, state string) (*models.SocialAccount, error) {
	args := m.Called(ctx, code, state)
	if account, ok := args.Get(0).(*models.SocialAccount); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlatformClient) Refresh(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error) {
	args := m.Called(ctx, account)
	if refreshed, ok := args.Get(0).(*models.SocialAccount); ok {
		return refreshed, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlatformClient) Publish(ctx context.Context, account *models.SocialAccount, content *transfer.PostContent) (*transfer.PublishResult, error) {
	args := m.Called(ctx, account, content)
	if result, ok := args.Get(0).(*transfer.PublishResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlatformClient) AccountInfo(ctx context.Context, account *models.SocialAccount) (json.RawMessage, error) {
	args := m.Called(ctx, account)
	if raw, ok := args.Get(0).(json.RawMessage); ok {
		return raw, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRegistry(platform string, client platforms.Client) *platforms.Registry {
	registry := platforms.NewRegistry(testConfig)
	registry.Register(client, transfer.PlatformInfo{ID: platform, Name: platform})
	return registry
}

// MockSocialAccountRepository is a mock implementing repository.SocialAccountRepository.
type MockSocialAccountRepository struct {
	mock.Mock
}

func (m *MockSocialAccountRepository) Upsert(ctx context.Context, sa *models.SocialAccount) (*models.SocialAccount, error) {
	args := m.Called(ctx, sa)
	if stored, ok := args.Get(0).(*models.SocialAccount); ok {
		return stored, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSocialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	args := m.Called(ctx, id)
	if account, ok := args.Get(0).(*models.SocialAccount); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSocialAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, userID)
	if accounts, ok := args.Get(0).([]*models.SocialAccount); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSocialAccountRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, ids)
	if accounts, ok := args.Get(0).([]*models.SocialAccount); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSocialAccountRepository) ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, cutoff)
	if accounts, ok := args.Get(0).([]*models.SocialAccount); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSocialAccountRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	args := m.Called(ctx, id, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

func (m *MockSocialAccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockSocialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	args := m.Called(ctx, accountID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSocialAccountRepository) Remove(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPostRepository is a mock implementing repository.PostRepository.
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	args := m.Called(ctx, tx, post)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	args := m.Called(ctx, id)
	if post, ok := args.Get(0).(*models.Post); ok {
		return post, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	args := m.Called(ctx, userID)
	if posts, ok := args.Get(0).([]*models.Post); ok {
		return posts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepository) UpdateStatus(ctx context.Context, postID int64, status string, publishedAt *time.Time) error {
	args := m.Called(ctx, postID, status, publishedAt)
	return args.Error(0)
}

func (m *MockPostRepository) CountPublished(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	args := m.Called(ctx, postID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) Remove(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPostPlatformRepository is a mock implementing repository.PostPlatformRepository.
type MockPostPlatformRepository struct {
	mock.Mock
}

func (m *MockPostPlatformRepository) CreatePending(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) (int64, error) {
	args := m.Called(ctx, tx, pp)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostPlatformRepository) RecordOutcome(ctx context.Context, pp *models.PostPlatform) error {
	args := m.Called(ctx, pp)
	return args.Error(0)
}

func (m *MockPostPlatformRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostPlatform, error) {
	args := m.Called(ctx, postID)
	if targets, ok := args.Get(0).([]*models.PostPlatform); ok {
		return targets, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostPlatformRepository) ListForUser(ctx context.Context, userID int64) ([]*transfer.PostPlatformRow, error) {
	args := m.Called(ctx, userID)
	if rows, ok := args.Get(0).([]*transfer.PostPlatformRow); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostPlatformRepository) CheckByUserID(ctx context.Context, postPlatformID, userID int64) (bool, error) {
	args := m.Called(ctx, postPlatformID, userID)
	return args.Bool(0), args.Error(1)
}

// MockMetricEventRepository is a mock implementing repository.MetricEventRepository.
type MockMetricEventRepository struct {
	mock.Mock
}

func (m *MockMetricEventRepository) Create(ctx context.Context, ev *models.MetricEvent) (int64, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMetricEventRepository) ListForUser(ctx context.Context, userID int64) ([]*transfer.MetricRow, error) {
	args := m.Called(ctx, userID)
	if rows, ok := args.Get(0).([]*transfer.MetricRow); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetricEventRepository) ListForUserSince(ctx context.Context, userID int64, since time.Time) ([]*transfer.MetricRow, error) {
	args := m.Called(ctx, userID, since)
	if rows, ok := args.Get(0).([]*transfer.MetricRow); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenService is a mock implementing TokenService.
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) EnsureFresh(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error) {
	args := m.Called(ctx, account)
	if fresh, ok := args.Get(0).(*models.SocialAccount); ok {
		return fresh, args.Error(1)
	}
	return nil, args.Error(1)
}

// memorySocialAccountRepository enforces the (user_id, platform, account_id)
// uniqueness the real table carries, so races in the connect flow surface
// as duplicate rows here.
type memorySocialAccountRepository struct {
	MockSocialAccountRepository

	mu     sync.Mutex
	nextID int64
	rows   map[string]*models.SocialAccount
}

func newMemorySocialAccountRepository() *memorySocialAccountRepository {
	return &memorySocialAccountRepository{rows: make(map[string]*models.SocialAccount)}
}

func naturalKey(sa *models.SocialAccount) string {
	return fmt.Sprintf("%d/%s/%s", sa.UserID, sa.Platform, sa.AccountID)
}

func (r *memorySocialAccountRepository) Upsert(ctx context.Context, sa *models.SocialAccount) (*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := naturalKey(sa)
	if existing, ok := r.rows[key]; ok {
		existing.AccessToken = sa.AccessToken
		if sa.RefreshToken != "" {
			existing.RefreshToken = sa.RefreshToken
		}
		if sa.AccountName != "" {
			existing.AccountName = sa.AccountName
		}
		existing.TokenExpiresAt = sa.TokenExpiresAt
		existing.IsActive = true
		stored := *existing
		return &stored, nil
	}

	r.nextID++
	row := *sa
	row.ID = r.nextID
	row.IsActive = true
	r.rows[key] = &row
	stored := row
	return &stored, nil
}

func (r *memorySocialAccountRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
