package fcm

import (
	"context"
	"errors"
	"fmt"
	"time"

	notifdomain "fled-backend/internal/notification/domain"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// MaxMulticastTokens is FCM's hard limit per multicast call
const MaxMulticastTokens = 500

// ErrTooManyTokens is returned when a batch exceeds MaxMulticastTokens
var ErrTooManyTokens = errors.New("fcm: too many tokens for one multicast")

const webpushIcon = "/assets/img/logo.png"

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient multicastSender
	timeout         time.Duration
}

// NewClient creates a new FCM client from an initialized Firebase app.
// timeout bounds each provider call; zero means no extra bound.
func NewClient(ctx context.Context, app *firebase.App, timeout time.Duration) (*Client, error) {
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return &Client{
		messagingClient: messagingClient,
		timeout:         timeout,
	}, nil
}

// SendMulticast delivers payload to up to MaxMulticastTokens tokens and
// returns one result per token, in input order. An error means the whole
// call failed and no per-token result is available.
func (c *Client) SendMulticast(ctx context.Context, payload notifdomain.Payload, tokens []string) ([]notifdomain.SendResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("%w: %d", ErrTooManyTokens, len(tokens))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Icon:  webpushIcon,
			},
		},
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}
	return toResults(tokens, response), nil
}

func toResults(tokens []string, response *messaging.BatchResponse) []notifdomain.SendResult {
	results := make([]notifdomain.SendResult, len(tokens))
	for i, token := range tokens {
		results[i] = notifdomain.SendResult{Token: token}
		if response == nil || i >= len(response.Responses) || response.Responses[i] == nil {
			results[i].Code = notifdomain.ErrorCodeOther
			results[i].Err = errors.New("fcm: missing response for token")
			continue
		}
		resp := response.Responses[i]
		if resp.Success {
			results[i].Success = true
			continue
		}
		results[i].Err = resp.Error
		results[i].Code = Classify(resp.Error)
	}
	return results
}

// Classify maps an FCM send error to a provider-agnostic code. Only
// unregistered and malformed/foreign tokens are reported as stale.
func Classify(err error) notifdomain.ErrorCode {
	switch {
	case err == nil:
		return notifdomain.ErrorCodeNone
	case messaging.IsUnregistered(err):
		return notifdomain.ErrorCodeUnregistered
	case messaging.IsInvalidArgument(err), messaging.IsSenderIDMismatch(err):
		return notifdomain.ErrorCodeInvalidToken
	default:
		return notifdomain.ErrorCodeOther
	}
}
