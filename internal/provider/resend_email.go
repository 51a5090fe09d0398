package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/resend/resend-go/v2"
)

const defaultEmailFrom = "SubReminder <onboarding@resend.dev>"

// ResendEmails is the subset of the Resend SDK used for delivery. It is
// satisfied by resend.Client.Emails.
type ResendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendEmailSender delivers HTML email through Resend.
type ResendEmailSender struct {
	emails ResendEmails
	from   string
}

func NewResendEmailSender(apiKey, from string) (*ResendEmailSender, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	client := resend.NewClient(apiKey)
	return NewResendEmailSenderWithClient(client.Emails, from)
}

func NewResendEmailSenderWithClient(emails ResendEmails, from string) (*ResendEmailSender, error) {
	if emails == nil {
		return nil, fmt.Errorf("resend client is required")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		from = defaultEmailFrom
	}
	return &ResendEmailSender{emails: emails, from: from}, nil
}

func (p *ResendEmailSender) Channel() domain.Channel { return domain.ChannelEmail }

func (p *ResendEmailSender) Send(ctx context.Context, msg Message) (*ProviderResponse, error) {
	if p == nil || p.emails == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.Recipient) == "" {
		return nil, fmt.Errorf("%w: email recipient is required", domain.ErrValidation)
	}

	resp, err := p.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		Html:    msg.Body,
	})
	if err != nil {
		return nil, classifyResendError(err)
	}
	if resp == nil {
		return nil, &ProviderError{
			Provider:  providerResend,
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	return &ProviderResponse{
		StatusCode: 200,
		MessageID:  resp.Id,
	}, nil
}

func classifyResendError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{
			Provider:  providerResend,
			Message:   "provider request failed",
			Transient: errors.Is(err, context.DeadlineExceeded),
			Cause:     err,
		}
	}

	msg := strings.ToLower(err.Error())
	transient := strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "timeout")

	return &ProviderError{
		Provider:  providerResend,
		Message:   "resend rejected email",
		Transient: transient,
		Cause:     err,
	}
}
