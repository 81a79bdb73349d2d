package delivery

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"

	dErrors "tripmate/pkg/domain-errors"
)

// TelegramSender posts messages through the Bot API sendMessage method.
type TelegramSender struct {
	bot   *bot.Bot
	token string
}

// NewTelegram builds a bot client against baseURL. It does not call getMe, so
// construction never touches the network.
func NewTelegram(baseURL, token string, httpClient *http.Client) (*TelegramSender, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	b, err := bot.New(token,
		bot.WithServerURL(strings.TrimRight(baseURL, "/")),
		bot.WithHTTPClient(httpClient.Timeout, httpClient),
		bot.WithSkipGetMe(),
	)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s", redact(err.Error(), token))
	}
	return &TelegramSender{bot: b, token: token}, nil
}

func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	if msg.ChatID == "" {
		return dErrors.New(dErrors.CodeValidation, "chat_id is required for telegram delivery")
	}
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID(msg.ChatID),
		Text:   msg.Text,
	})
	if err != nil {
		// transport errors carry the request URL, which embeds the bot token
		return dErrors.New(dErrors.CodeUnavailable,
			"telegram sendMessage failed: "+redact(err.Error(), s.token))
	}
	return nil
}

// chatID passes numeric IDs as integers and @channel handles as strings.
func chatID(raw string) any {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id
	}
	return raw
}

func redact(s, token string) string {
	return strings.ReplaceAll(s, token, "<redacted>")
}
