package handlers

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/platforms"
	"github.com/postpulse/postpulse/internal/service"
)

type PlatformHandler struct {
	cs       service.ConnectService
	registry *platforms.Registry
	cfg      config.Config
}

func NewPlatformHandler(cs service.ConnectService, registry *platforms.Registry, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		cs:       cs,
		registry: registry,
		cfg:      cfg,
	}
}

func (h *PlatformHandler) ListSupported(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.registry.ListSupported())
}

func (h *PlatformHandler) Connect(c *fiber.Ctx) error {
	userID := GetUserID(c)

	authURL, err := h.cs.Initiate(c.Context(), userID, c.Params("platform"))
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unsupported platform",
		})
	}

	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

// CallbackHandler terminates the provider redirect. Outcomes map onto
// query parameters of the accounts page; provider internals never leak
// into the redirect URL.
func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")
	code := c.Query("code")
	state := c.Query("state")
	providerError := c.Query("error")

	result := h.cs.CompleteCallback(c.Context(), platform, code, state, providerError)

	switch result.Status {
	case service.CallbackSuccess:
		return h.redirectToAccounts(c, "success", fmt.Sprintf("%s_connected", result.Platform))
	case service.CallbackDenied:
		return h.redirectToAccounts(c, "error", result.Reason)
	case service.CallbackMissingParams:
		return h.redirectToAccounts(c, "error", "missing_parameters")
	default:
		return h.redirectToAccounts(c, "error", "connection_failed")
	}
}

func (h *PlatformHandler) redirectToAccounts(c *fiber.Ctx, key, value string) error {
	params := url.Values{}
	params.Set(key, value)
	redirectURL := fmt.Sprintf("%s/dashboard/accounts?%s", h.cfg.FrontendURL, params.Encode())
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}
