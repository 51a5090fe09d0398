package provider

import (
	"context"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
)

// Message is one outbound delivery. Subject is ignored by channels without one.
type Message struct {
	Recipient string
	UserID    string
	Subject   string
	Body      string
}

// Sender is the outbound delivery port for a single channel.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg Message) (*ProviderResponse, error)
}

// ProviderResponse stores provider call metadata for audit and persistence.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}

const (
	providerResend          = "resend"
	providerNotificationAPI = "notificationapi"
	providerTwilio          = "twilio"
)
