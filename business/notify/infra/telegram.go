// Package infra contains the alert senders and dedup stores.
package infra

import (
	"context"
	"fmt"
	"strings"

	"github.com/fd1az/dex-spread-monitor/business/notify/domain"
	"github.com/fd1az/dex-spread-monitor/internal/httpclient"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramSender posts alerts through the Telegram Bot API.
type TelegramSender struct {
	client  httpclient.Client
	baseURL string
	token   string
	chatID  string
}

// NewTelegramSender creates a TelegramSender. An empty baseURL means the
// public Bot API.
func NewTelegramSender(client httpclient.Client, baseURL, token, chatID string) *TelegramSender {
	if baseURL == "" {
		baseURL = defaultTelegramURL
	}
	return &TelegramSender{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		chatID:  chatID,
	}
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts msg with sendMessage. The title is rendered bold.
func (t *TelegramSender) Send(ctx context.Context, msg domain.Message) error {
	var result telegramResponse

	resp, err := t.client.NewRequestWithOptions(
		httpclient.WithResponseErrorHandler(httpclient.StatusError("telegram")),
	).
		SetBody(map[string]any{
			"chat_id":                  t.chatID,
			"text":                     fmt.Sprintf("<b>%s</b>\n%s", escapeHTML(msg.Title), escapeHTML(msg.Body)),
			"parse_mode":               "HTML",
			"disable_web_page_preview": true,
		}).
		SetResult(&result).
		Post(ctx, fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token))
	if err != nil {
		return err
	}
	if resp.Result() != nil && !result.OK {
		return fmt.Errorf("telegram: %s", result.Description)
	}
	return nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
