package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpulse/postpulse/internal/service"
	"github.com/postpulse/postpulse/internal/transfer"
)

type AnalyticsHandler struct {
	as service.AnalyticsService
	ms service.MetricService
}

func NewAnalyticsHandler(as service.AnalyticsService, ms service.MetricService) *AnalyticsHandler {
	return &AnalyticsHandler{
		as: as,
		ms: ms,
	}
}

func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	userID := GetUserID(c)

	overview, err := h.as.Overview(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute analytics overview",
		})
	}

	return c.Status(fiber.StatusOK).JSON(overview)
}

func (h *AnalyticsHandler) PlatformBreakdown(c *fiber.Ctx) error {
	userID := GetUserID(c)

	breakdown, err := h.as.PlatformBreakdown(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute platform analytics",
		})
	}

	return c.Status(fiber.StatusOK).JSON(breakdown)
}

func (h *AnalyticsHandler) TopPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	limit := c.QueryInt("limit", 10)

	topPosts, err := h.as.TopPosts(c.Context(), userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute top posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(topPosts)
}

func (h *AnalyticsHandler) Trends(c *fiber.Ctx) error {
	userID := GetUserID(c)
	days := c.QueryInt("days", service.DefaultTrendWindow)

	trends, err := h.as.TrendData(c.Context(), userID, days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute trend data",
		})
	}

	return c.Status(fiber.StatusOK).JSON(trends)
}

// Dashboard serves all four projections for one page render. Projections
// degrade independently; the endpoint never fails outright.
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	userID := GetUserID(c)
	return c.Status(fiber.StatusOK).JSON(h.as.Dashboard(c.Context(), userID))
}

func (h *AnalyticsHandler) RecordMetric(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var in transfer.MetricIngest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	id, err := h.ms.Record(c.Context(), userID, &in)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": id,
	})
}
