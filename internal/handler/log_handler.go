package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

// NotificationLogReader lists the audit trail.
type NotificationLogReader interface {
	List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error)
}

type LogHandler struct {
	logs NotificationLogReader
}

func NewLogHandler(logs NotificationLogReader) (*LogHandler, error) {
	if logs == nil {
		return nil, fmt.Errorf("notification log reader is required")
	}
	return &LogHandler{logs: logs}, nil
}

func RegisterLogRoutes(router fiber.Router, logs NotificationLogReader) error {
	h, err := NewLogHandler(logs)
	if err != nil {
		return err
	}

	router.Group("/v1").Get("/notification-logs", h.ListLogs)
	return nil
}

type notificationLogResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId,omitempty"`
	SubscriptionID    *string   `json:"subscriptionId"`
	SubscriptionName  string    `json:"subscriptionName"`
	Channel           string    `json:"channel"`
	Status            string    `json:"status"`
	Recipient         string    `json:"recipient"`
	ErrorMessage      *string   `json:"errorMessage,omitempty"`
	ProviderMessageID *string   `json:"providerMessageId,omitempty"`
	ReferenceDate     string    `json:"referenceDate"`
	OffsetDays        int       `json:"offsetDays"`
	TestRun           bool      `json:"testRun"`
	CreatedAt         time.Time `json:"createdAt"`
}

type listLogsResponse struct {
	Data []notificationLogResponse `json:"data"`
	Meta listMeta                  `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *LogHandler) ListLogs(c *fiber.Ctx) error {
	params, err := parseLogListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	logs, total, err := h.logs.List(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]notificationLogResponse, 0, len(logs))
	for i := range logs {
		data = append(data, toNotificationLogResponse(&logs[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listLogsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseLogListParams(c *fiber.Ctx) (repository.LogListParams, error) {
	params := repository.LogListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.LogListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.LogListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if raw := strings.TrimSpace(c.Query("channel")); raw != "" {
		channel, err := domain.ParseChannelFromString(raw)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.Channel = &channel
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseLogStatusFromString(raw)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.Status = &status
	}

	if raw := strings.TrimSpace(c.Query("testRun")); raw != "" {
		testRun, err := strconv.ParseBool(raw)
		if err != nil {
			return repository.LogListParams{}, fmt.Errorf("%w: testRun must be a boolean", domain.ErrValidation)
		}
		params.TestRun = &testRun
	}

	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.ReferenceDate = &date
	}

	return params, nil
}

func toNotificationLogResponse(l *domain.NotificationLog) notificationLogResponse {
	return notificationLogResponse{
		ID:                l.ID,
		UserID:            l.UserID,
		SubscriptionID:    l.SubscriptionID,
		SubscriptionName:  l.SubscriptionName,
		Channel:           l.Channel.String(),
		Status:            l.Status.String(),
		Recipient:         l.Recipient,
		ErrorMessage:      l.ErrorMessage,
		ProviderMessageID: l.ProviderMessageID,
		ReferenceDate:     domain.FormatDate(l.ReferenceDate),
		OffsetDays:        l.OffsetDays,
		TestRun:           l.TestRun,
		CreatedAt:         l.CreatedAt,
	}
}
