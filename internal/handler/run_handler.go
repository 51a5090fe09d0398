package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
)

// RunService triggers reminder runs.
type RunService interface {
	RunLive(ctx context.Context, date *time.Time) (*domain.RunSummary, error)
	RunDiagnostic(ctx context.Context) *domain.DiagnosticResult
}

type RunHandler struct {
	runs RunService
}

func NewRunHandler(runs RunService) (*RunHandler, error) {
	if runs == nil {
		return nil, fmt.Errorf("run service is required")
	}
	return &RunHandler{runs: runs}, nil
}

func RegisterRunRoutes(router fiber.Router, runs RunService) error {
	h, err := NewRunHandler(runs)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/runs", h.TriggerRun)
	v1.Post("/runs/diagnostic", h.TriggerDiagnostic)

	return nil
}

type runSummaryResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
}

type runFailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type diagnosticResponse struct {
	Success  bool              `json:"success"`
	Date     string            `json:"date"`
	Channels map[string]string `json:"channels"`
}

// TriggerRun executes a live run synchronously. The optional date query
// parameter overrides "today" for operator backfills.
func (h *RunHandler) TriggerRun(c *fiber.Ctx) error {
	var date *time.Time
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			return toHTTPError(err)
		}
		date = &parsed
	}

	summary, err := h.runs.RunLive(c.UserContext(), date)
	if err != nil {
		if isClientError(err) {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(runFailureResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(runSummaryResponse{
		Success: true,
		Date:    domain.FormatDate(summary.Date),
		Sent:    summary.Sent,
		Skipped: summary.Skipped,
		Errors:  summary.Errors,
	})
}

func (h *RunHandler) TriggerDiagnostic(c *fiber.Ctx) error {
	result := h.runs.RunDiagnostic(c.UserContext())

	channels := make(map[string]string, len(result.Channels))
	for channel, status := range result.Channels {
		channels[channel.String()] = status.String()
	}

	return c.Status(fiber.StatusOK).JSON(diagnosticResponse{
		Success:  true,
		Date:     domain.FormatDate(result.Date),
		Channels: channels,
	})
}
