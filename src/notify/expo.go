package notify

import (
	"context"
	"errors"
	"fmt"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// ExpoPusher sends messages through the Expo push service.
type ExpoPusher struct {
	client *expo.PushClient
}

// NewExpoPusher returns a pusher using accessToken, which may be empty.
func NewExpoPusher(accessToken string) *ExpoPusher {
	var cfg *expo.ClientConfig
	if accessToken != "" {
		cfg = &expo.ClientConfig{AccessToken: accessToken}
	}
	return &ExpoPusher{client: expo.NewPushClient(cfg)}
}

func (p *ExpoPusher) Push(ctx context.Context, tokens []string, msg Message) error {
	to := make([]expo.ExponentPushToken, 0, len(tokens))
	for _, t := range tokens {
		pt, err := expo.NewExponentPushToken(t)
		if err != nil {
			continue
		}
		to = append(to, pt)
	}
	if len(to) == 0 {
		return errors.New("no valid expo push tokens")
	}

	resp, err := p.client.Publish(&expo.PushMessage{
		To:       to,
		Title:    msg.Title,
		Body:     msg.Body,
		Data:     msg.Data,
		Sound:    "default",
		Priority: expo.DefaultPriority,
	})
	if err != nil {
		return fmt.Errorf("expo publish: %w", err)
	}
	if err := resp.ValidateResponse(); err != nil {
		return fmt.Errorf("expo response: %w", err)
	}
	return nil
}
