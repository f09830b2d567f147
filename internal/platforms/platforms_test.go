package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/transfer"
	"github.com/stretchr/testify/assert"
)

func TestStateRoundTrip(t *testing.T) {
	for _, userID := range []int64{1, 42, 9007199254740993} {
		state := NewState(userID)

		recovered, err := UserIDFromState(state)
		assert.NoError(t, err)
		assert.Equal(t, userID, recovered)
	}
}

func TestStateCarriesTimestampSuffix(t *testing.T) {
	state := NewState(7)

	_, suffix, found := strings.Cut(state, "-")
	assert.True(t, found)
	assert.NotEmpty(t, suffix)
}

func TestUserIDFromStateMalformed(t *testing.T) {
	for _, state := range []string{"", "42", "-123", "abc-123", "12.5-99"} {
		_, err := UserIDFromState(state)
		assert.Error(t, err, "state %q", state)
		assert.True(t, errors.Is(err, ErrOAuthExchange))
	}
}

type stubClient struct{}

func (stubClient) AuthURL(userID int64) string { return "https://example.com/auth" }
func (stubClient) ExchangeCallback(ctx context.Context, code, state string) (*models.SocialAccount, error) {
	return nil, nil
}
func (stubClient) Refresh(ctx context.Context, account *models.SocialAccount) (*models.SocialAccount, error) {
	return nil, nil
}
func (stubClient) Publish(ctx context.Context, account *models.SocialAccount, content *transfer.PostContent) (*transfer.PublishResult, error) {
	return nil, nil
}
func (stubClient) AccountInfo(ctx context.Context, account *models.SocialAccount) (json.RawMessage, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry(config.Config{})

	client, err := registry.Resolve(models.PlatformInstagram)
	assert.NoError(t, err)
	assert.NotNil(t, client)

	client, err = registry.Resolve(models.PlatformYoutube)
	assert.NoError(t, err)
	assert.NotNil(t, client)
}

func TestRegistryResolveUnsupported(t *testing.T) {
	registry := NewRegistry(config.Config{})

	_, err := registry.Resolve("myspace")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	assert.Contains(t, err.Error(), "myspace")
}

func TestRegistryListSupportedOrdered(t *testing.T) {
	registry := NewRegistry(config.Config{})
	registry.Register(stubClient{}, transfer.PlatformInfo{
		ID:   "acme",
		Name: "Acme",
	})

	list := registry.ListSupported()

	ids := make([]string, 0, len(list))
	for _, info := range list {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{"acme", models.PlatformInstagram, models.PlatformYoutube}, ids)
}

func TestRegistryRegisterReplaces(t *testing.T) {
	registry := NewRegistry(config.Config{})
	replacement := stubClient{}
	registry.Register(replacement, transfer.PlatformInfo{ID: models.PlatformInstagram, Name: "Instagram"})

	client, err := registry.Resolve(models.PlatformInstagram)
	assert.NoError(t, err)
	assert.Equal(t, replacement, client)
	assert.Len(t, registry.ListSupported(), 2)
}
