// Package llm はOpenAI互換のチャット補完APIクライアントを提供する。
// OpenAI本体のほか、GeminiのOpenAI互換エンドポイントにも接続できる。
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ErrEmptyResponse は補完結果に選択肢が含まれない場合のエラー。
var ErrEmptyResponse = errors.New("llm: empty completion response")

// Completer はsystem/userの2メッセージで補完を要求するインターフェース。
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config はClientの接続設定。
type Config struct {
	APIKey     string
	BaseURL    string // 空の場合はOpenAIのデフォルト
	Model      string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Client はopenai-goを用いたCompleterの実装。
type Client struct {
	client openai.Client
	model  string
}

// NewClient はClientを生成する。
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Model は使用するモデル名を返す。
func (c *Client) Model() string {
	return c.model
}

// Complete はチャット補完を1回実行し、先頭の選択肢の本文を返す。
// systemが空の場合はuserメッセージのみを送る。
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
