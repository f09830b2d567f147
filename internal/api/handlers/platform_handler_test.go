package handlers

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockConnectService is a mock implementing service.ConnectService.
type MockConnectService struct {
	mock.Mock
}

func (m *MockConnectService) Initiate(ctx context.Context, userID int64, platform string) (string, error) {
	args := m.Called(ctx, userID, platform)
	return args.String(0), args.Error(1)
}

func (m *MockConnectService) CompleteCallback(ctx context.Context, platform, code, state, providerError string) service.CallbackResult {
	args := m.Called(ctx, platform, code, state, providerError)
	return args.Get(0).(service.CallbackResult)
}

func newCallbackApp(cs service.ConnectService) *fiber.App {
	cfg := config.Config{FrontendURL: "http://localhost:5173"}
	h := NewPlatformHandler(cs, platforms.NewRegistry(cfg), cfg)

	app := fiber.New()
	app.Get("/auth/:platform/callback", h.CallbackHandler)
	return app
}

func TestCallbackRedirects(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		result   service.CallbackResult
		location string
	}{
		{
			name:     "success",
			query:    "code=auth-code&state=42-1",
			result:   service.CallbackResult{Status: service.CallbackSuccess, Platform: "instagram"},
			location: "http://localhost:5173/dashboard/accounts?success=instagram_connected",
		},
		{
			name:     "denied",
			query:    "error=access_denied",
			result:   service.CallbackResult{Status: service.CallbackDenied, Platform: "instagram", Reason: "access_denied"},
			location: "http://localhost:5173/dashboard/accounts?error=access_denied",
		},
		{
			name:     "missing parameters",
			query:    "",
			result:   service.CallbackResult{Status: service.CallbackMissingParams, Platform: "instagram"},
			location: "http://localhost:5173/dashboard/accounts?error=missing_parameters",
		},
		{
			name:     "failed",
			query:    "code=bad-code&state=42-1",
			result:   service.CallbackResult{Status: service.CallbackFailed, Platform: "instagram"},
			location: "http://localhost:5173/dashboard/accounts?error=connection_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := new(MockConnectService)
			cs.On("CompleteCallback", mock.Anything, "instagram", mock.Anything, mock.Anything, mock.Anything).
				Return(tt.result)

			app := newCallbackApp(cs)

			req := httptest.NewRequest("GET", "/auth/instagram/callback?"+tt.query, nil)
			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
		})
	}
}

func TestCallbackForwardsQueryParams(t *testing.T) {
	cs := new(MockConnectService)
	cs.On("CompleteCallback", mock.Anything, "instagram", "auth-code", "42-1", "").
		Return(service.CallbackResult{Status: service.CallbackSuccess, Platform: "instagram"}).Once()

	app := newCallbackApp(cs)

	req := httptest.NewRequest("GET", "/auth/instagram/callback?code=auth-code&state=42-1", nil)
	_, err := app.Test(req)
	assert.NoError(t, err)
	cs.AssertExpectations(t)
}
