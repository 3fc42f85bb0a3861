package rest

import (
	"context"

	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/AzielCF/az-speed/pkg/optmonitor"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// ThrottleService is the emergency throttle as used by the admin surface.
type ThrottleService interface {
	Status(ctx context.Context) (safety.ThrottleStatus, error)
	Reset(ctx context.Context) error
}

type MonitoringHandler struct {
	monitor  *optmonitor.Monitor
	throttle ThrottleService
}

// InitRestMonitoring registers the optimizer activity and safety endpoints.
func InitRestMonitoring(app fiber.Router, monitor *optmonitor.Monitor, throttle ThrottleService) {
	h := &MonitoringHandler{monitor: monitor, throttle: throttle}

	app.Get("/monitoring/stats", h.GetStats)
	app.Get("/safety/status", h.GetSafetyStatus)
	app.Post("/safety/reset", h.ResetSafety)
}

func (h *MonitoringHandler) GetStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Optimizer activity",
		Results: h.monitor.GetStats(),
	})
}

func (h *MonitoringHandler) GetSafetyStatus(c *fiber.Ctx) error {
	st, err := h.throttle.Status(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Safety status",
		Results: st,
	})
}

func (h *MonitoringHandler) ResetSafety(c *fiber.Ctx) error {
	utils.PanicIfNeeded(h.throttle.Reset(c.UserContext()))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Error counter and emergency flag cleared",
	})
}
