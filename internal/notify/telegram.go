// Package notify は保存済みの放送原稿を外部チャネルへ配信する。
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hitoshi/newscast/internal/model"
)

// maxMessageLength はTelegramの1メッセージあたりの最大文字数。
const maxMessageLength = 4096

// Notifier は放送原稿の配信先。
type Notifier interface {
	Notify(ctx context.Context, b *model.Broadcast) error
}

// messageSender は*tgbotapi.BotAPIのうちメッセージ送信に使う部分。
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier は放送原稿の見出しをTelegramチャットへ投稿する。
type TelegramNotifier struct {
	sender messageSender
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier はボットトークンを検証してTelegramNotifierを生成する。
func NewTelegramNotifier(token string, chatID int64, httpClient *http.Client, logger *slog.Logger) (*TelegramNotifier, error) {
	return newTelegramNotifier(token, tgbotapi.APIEndpoint, chatID, httpClient, logger)
}

func newTelegramNotifier(token, endpoint string, chatID int64, httpClient *http.Client, logger *slog.Logger) (*TelegramNotifier, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("Telegram配信を有効化しました",
		slog.String("bot", bot.Self.UserName),
		slog.Int64("chat_id", chatID),
	)

	return &TelegramNotifier{sender: bot, chatID: chatID, logger: logger}, nil
}

// Notify は放送原稿の見出し一覧を1メッセージとして送信する。
func (n *TelegramNotifier) Notify(ctx context.Context, b *model.Broadcast) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(b))
	msg.DisableWebPagePreview = true

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("Telegramへの送信に失敗しました: %w", err)
	}

	n.logger.Info("放送原稿をTelegramへ配信しました",
		slog.String("broadcast_id", b.ID),
		slog.Int("article_count", len(b.Articles)),
	)
	return nil
}

// FormatMessage は放送原稿を配信用のプレーンテキストに整形する。
func FormatMessage(b *model.Broadcast) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📰 Newscast %s UTC\n", b.Timestamp.UTC().Format("2006-01-02 15:04"))

	if len(b.Articles) == 0 {
		sb.WriteString("\n")
		sb.WriteString(b.Script)
		return truncate(sb.String())
	}

	for _, a := range b.Articles {
		fmt.Fprintf(&sb, "\n• [%s] %s", a.Category, a.Title)
		if a.Source != "" {
			fmt.Fprintf(&sb, " (%s)", a.Source)
		}
		if a.URL != "" {
			fmt.Fprintf(&sb, "\n  %s", a.URL)
		}
	}

	return truncate(sb.String())
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageLength {
		return s
	}
	return string(r[:maxMessageLength-1]) + "…"
}
