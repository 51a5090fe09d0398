package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioMessages is the subset of the Twilio SDK used for delivery. It is
// satisfied by twilio.RestClient.Api.
type TwilioMessages interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMSSender delivers SMS through the Twilio Messages API.
type TwilioSMSSender struct {
	messages TwilioMessages
	from     string
}

func NewTwilioSMSSender(accountSID, authToken, from string) (*TwilioSMSSender, error) {
	accountSID = strings.TrimSpace(accountSID)
	authToken = strings.TrimSpace(authToken)
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio account sid and auth token are required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewTwilioSMSSenderWithClient(client.Api, from)
}

func NewTwilioSMSSenderWithClient(messages TwilioMessages, from string) (*TwilioSMSSender, error) {
	if messages == nil {
		return nil, fmt.Errorf("twilio client is required")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, fmt.Errorf("twilio from number is required")
	}
	return &TwilioSMSSender{messages: messages, from: from}, nil
}

func (p *TwilioSMSSender) Channel() domain.Channel { return domain.ChannelSMS }

// Send ignores ctx deadlines once the request is issued; the SDK does not
// accept a context.
func (p *TwilioSMSSender) Send(ctx context.Context, msg Message) (*ProviderResponse, error) {
	if p == nil || p.messages == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.Recipient) == "" {
		return nil, fmt.Errorf("%w: sms recipient is required", domain.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{
			Provider:  providerTwilio,
			Message:   "provider request failed",
			Transient: errors.Is(err, context.DeadlineExceeded),
			Cause:     err,
		}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.Recipient)
	params.SetFrom(p.from)
	params.SetBody(msg.Body)

	resp, err := p.messages.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return nil, &ProviderError{
				Provider:   providerTwilio,
				StatusCode: restErr.Status,
				Message:    fmt.Sprintf("error %d: %s", restErr.Code, restErr.Message),
				Transient:  isTransientHTTPStatus(restErr.Status),
				Cause:      err,
			}
		}
		return nil, &ProviderError{
			Provider:  providerTwilio,
			Message:   "provider request failed",
			Transient: true,
			Cause:     err,
		}
	}

	out := &ProviderResponse{StatusCode: http.StatusCreated}
	if resp != nil && resp.Sid != nil {
		out.MessageID = *resp.Sid
	}
	return out, nil
}
