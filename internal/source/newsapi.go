package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/newscast/internal/model"
)

const (
	// DefaultNewsAPIEndpoint はNewsAPIの全文検索エンドポイント。
	DefaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"
	// maxResponseSize はレスポンスボディの読み取り上限。
	maxResponseSize = 2 << 20
)

// NewsAPIConfig はNewsAPIClientの設定。
type NewsAPIConfig struct {
	Endpoint   string
	APIKey     string
	MaxRetries int
}

// NewsAPIClient はNewsAPIから記事を取得するArticleSource。
// 429/5xxと通信エラーは指数バックオフで最大MaxRetries回まで再試行する。
type NewsAPIClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        NewsAPIConfig
	normalizer *normalizer
	sleep      func(ctx context.Context, d time.Duration) error // テスト用に差し替え可能
}

// NewNewsAPIClient はNewsAPIClientを生成する。
func NewNewsAPIClient(httpClient *http.Client, logger *slog.Logger, cfg NewsAPIConfig) *NewsAPIClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultNewsAPIEndpoint
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &NewsAPIClient{
		httpClient: httpClient,
		logger:     logger,
		cfg:        cfg,
		normalizer: newNormalizer(),
		sleep:      sleepContext,
	}
}

// newsAPIResponse はNewsAPIのレスポンス。記事は正規化時に個別にデコードする。
type newsAPIResponse struct {
	Status   string            `json:"status"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Articles []json.RawMessage `json:"articles"`
}

// Fetch はクエリに一致する記事を人気順で取得する。
// いかなる失敗も警告ログを出した上で空スライスを返す。
func (c *NewsAPIClient) Fetch(ctx context.Context, q Query) []model.Article {
	start := time.Now()

	body, err := c.getWithRetry(ctx, c.buildURL(q))
	if err != nil {
		c.logger.Warn("ニュースの取得に失敗しました",
			slog.String("query", q.Topic),
			slog.String("error", err.Error()),
		)
		return nil
	}

	articles, err := c.decode(body)
	if err != nil {
		c.logger.Warn("ニュースAPIのレスポンスを解釈できませんでした",
			slog.String("query", q.Topic),
			slog.String("error", err.Error()),
		)
		return nil
	}

	articles = capArticles(articles, q.PageSize)

	c.logger.Info("ニュースを取得しました",
		slog.String("query", q.Topic),
		slog.Int("article_count", len(articles)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return articles
}

func (c *NewsAPIClient) buildURL(q Query) string {
	params := url.Values{}
	params.Set("q", q.Topic)
	if !q.Since.IsZero() {
		params.Set("from", q.Since.Format("2006-01-02"))
	}
	params.Set("sortBy", "popularity")
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return c.cfg.Endpoint + "?" + params.Encode()
}

func (c *NewsAPIClient) getWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)
			c.logger.Info("ニュースAPIへのリクエストを再試行します",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("last_error", lastErr.Error()),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, retryable, err := c.get(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// get は1回分のGETを実行する。戻り値のboolは再試行可能かどうか。
func (c *NewsAPIClient) get(ctx context.Context, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	req.Header.Set("User-Agent", "Newscast/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch classifyStatus(resp.StatusCode) {
	case statusOK:
	case statusRetry:
		return nil, true, fmt.Errorf("ニュースAPIがステータス %d を返しました", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("ニュースAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, true, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	return body, false, nil
}

func (c *NewsAPIClient) decode(body []byte) ([]model.Article, error) {
	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("status=%q code=%q: %s", resp.Status, resp.Code, resp.Message)
	}

	articles := make([]model.Article, 0, len(resp.Articles))
	for i, raw := range resp.Articles {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			c.logger.Debug("記事レコードを読み飛ばしました",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		if a, ok := c.normalizer.fromMap(m); ok {
			articles = append(articles, a)
		}
	}
	return articles, nil
}
