package infra

import (
	"context"
	"fmt"

	"github.com/fd1az/dex-spread-monitor/business/notify/domain"
	"github.com/fd1az/dex-spread-monitor/internal/httpclient"
)

// discordContentLimit is the webhook message length cap.
const discordContentLimit = 2000

// DiscordSender posts alerts to a Discord webhook.
type DiscordSender struct {
	client     httpclient.Client
	webhookURL string
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(client httpclient.Client, webhookURL string) *DiscordSender {
	return &DiscordSender{client: client, webhookURL: webhookURL}
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

// Send posts msg to the webhook. Discord answers 204 on success.
func (d *DiscordSender) Send(ctx context.Context, msg domain.Message) error {
	content := fmt.Sprintf("**%s**\n```\n%s\n```", msg.Title, msg.Body)
	if len(content) > discordContentLimit {
		content = content[:discordContentLimit-3] + "..."
	}

	_, err := d.client.NewRequestWithOptions(
		httpclient.WithResponseErrorHandler(httpclient.StatusError("discord")),
	).
		SetBody(map[string]string{"content": content}).
		Post(ctx, d.webhookURL)
	return err
}
