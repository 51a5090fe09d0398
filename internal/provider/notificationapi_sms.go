package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
)

const (
	defaultProviderTimeout     = 10 * time.Second
	defaultNotificationAPIBase = "https://api.notificationapi.com"
	notificationAPIType        = "renewal_reminder"
)

type notificationAPIRequest struct {
	Type string                   `json:"type"`
	To   notificationAPIRecipient `json:"to"`
	SMS  notificationAPISMS       `json:"sms"`
}

type notificationAPIRecipient struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

type notificationAPISMS struct {
	Message string `json:"message"`
}

// NotificationAPIConfig holds NotificationAPI credentials.
type NotificationAPIConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NotificationAPISMSSender delivers SMS through the NotificationAPI sender endpoint.
type NotificationAPISMSSender struct {
	client   *resty.Client
	endpoint string
}

func NewNotificationAPISMSSender(cfg NotificationAPIConfig) (*NotificationAPISMSSender, error) {
	client := resty.New()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewNotificationAPISMSSenderWithClient(cfg, client)
}

func NewNotificationAPISMSSenderWithClient(cfg NotificationAPIConfig, client *resty.Client) (*NotificationAPISMSSender, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("notificationapi client id and secret are required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultNotificationAPIBase
	}
	endpoint := base + "/" + url.PathEscape(clientID) + "/sender"
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid notificationapi endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultProviderTimeout)
	}
	client.SetRetryCount(0)
	client.SetBasicAuth(clientID, clientSecret)

	return &NotificationAPISMSSender{
		client:   client,
		endpoint: endpoint,
	}, nil
}

func (p *NotificationAPISMSSender) Channel() domain.Channel { return domain.ChannelSMS }

func (p *NotificationAPISMSSender) Send(ctx context.Context, msg Message) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.Recipient) == "" {
		return nil, fmt.Errorf("%w: sms recipient is required", domain.ErrValidation)
	}

	// NotificationAPI requires a recipient id; ownerless sends use the number.
	recipientID := strings.TrimSpace(msg.UserID)
	if recipientID == "" {
		recipientID = msg.Recipient
	}

	reqBody := notificationAPIRequest{
		Type: notificationAPIType,
		To: notificationAPIRecipient{
			ID:     recipientID,
			Number: msg.Recipient,
		},
		SMS: notificationAPISMS{Message: msg.Body},
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Provider:  providerNotificationAPI,
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Provider:  providerNotificationAPI,
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &ProviderResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  providerMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		Provider:   providerNotificationAPI,
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Request-ID", "X-Correlation-ID", "X-Trace-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
