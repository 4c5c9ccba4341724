package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxChunkLength は1リクエストで合成する最大文字数。
const MaxChunkLength = 100

// maxChunkBytes は1チャンク分の音声データとして受け付ける最大サイズ。
const maxChunkBytes = 5 << 20

// ErrEmptyText は合成対象のテキストが空の場合のエラー。
var ErrEmptyText = errors.New("speech: no text to synthesize")

// TTSClient はGoogle翻訳の音声合成エンドポイント互換のクライアント。
// テキストを100文字以下のチャンクに分けて取得し、MP3を連結して返す。
type TTSClient struct {
	httpClient *http.Client
	endpoint   string
}

// NewTTSClient はTTSClientを生成する。
func NewTTSClient(httpClient *http.Client, endpoint string) *TTSClient {
	return &TTSClient{httpClient: httpClient, endpoint: endpoint}
}

// Synthesize はtextをlangCodeの音声（MP3）に変換する。
func (c *TTSClient) Synthesize(ctx context.Context, text, langCode string) ([]byte, error) {
	chunks := SplitText(text, MaxChunkLength)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		if err := c.fetchChunk(ctx, &audio, chunk, langCode, i, len(chunks)); err != nil {
			return nil, fmt.Errorf("tts chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return audio.Bytes(), nil
}

func (c *TTSClient) fetchChunk(ctx context.Context, w io.Writer, chunk, langCode string, idx, total int) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", chunk)
	params.Set("tl", langCode)
	params.Set("total", strconv.Itoa(total))
	params.Set("idx", strconv.Itoa(idx))
	params.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "newscast/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	n, err := io.Copy(w, io.LimitReader(resp.Body, maxChunkBytes))
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if n == 0 {
		return errors.New("empty audio response")
	}
	return nil
}

// SplitText はtextを単語境界でmaxLen文字以下のチャンクに分割する。
// maxLenを超える単語は文字単位で分割する。
func SplitText(text string, maxLen int) []string {
	var chunks []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > maxLen {
			flush()
			chunks = append(chunks, string(w[:maxLen]))
			w = w[maxLen:]
		}
		if len(cur) > 0 && len(cur)+1+len(w) > maxLen {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	flush()

	return chunks
}
