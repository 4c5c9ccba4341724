package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newscast/internal/model"
)

// FeedSource はRSS/Atomフィードから記事を集めるArticleSource。
// NewsAPIが使えない場合の代替として、設定された複数フィードを順に取得する。
type FeedSource struct {
	httpClient  *http.Client
	logger      *slog.Logger
	feedURLs    []string
	maxBodySize int64
	normalizer  *normalizer
}

// NewFeedSource はFeedSourceを生成する。
// httpClientにはSSRF対策済みのクライアントを渡すことを想定している。
func NewFeedSource(httpClient *http.Client, logger *slog.Logger, feedURLs []string, maxBodySize int64) *FeedSource {
	if maxBodySize <= 0 {
		maxBodySize = 5 << 20
	}
	return &FeedSource{
		httpClient:  httpClient,
		logger:      logger,
		feedURLs:    feedURLs,
		maxBodySize: maxBodySize,
		normalizer:  newNormalizer(),
	}
}

// Fetch は全フィードを取得し、q.Since以降の記事を新しい順に最大q.PageSize件返す。
// トピックが指定されている場合はタイトル・説明文に含まれる記事のみを対象とする。
// 個々のフィードの失敗はログに記録して読み飛ばす。
func (s *FeedSource) Fetch(ctx context.Context, q Query) []model.Article {
	var articles []model.Article

	for _, feedURL := range s.feedURLs {
		if ctx.Err() != nil {
			break
		}
		items, err := s.fetchFeed(ctx, feedURL, q)
		if err != nil {
			s.logger.Warn("フィードの取得に失敗しました",
				slog.String("feed_url", feedURL),
				slog.String("error", err.Error()),
			)
			continue
		}
		articles = append(articles, items...)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	return capArticles(articles, q.PageSize)
}

func (s *FeedSource) fetchFeed(ctx context.Context, feedURL string, q Query) ([]model.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Newscast/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if classifyStatus(resp.StatusCode) != statusOK {
		return nil, fmt.Errorf("フィードがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗しました: %w", err)
	}

	if q.Language != "" && parsed.Language != "" &&
		!strings.HasPrefix(strings.ToLower(parsed.Language), strings.ToLower(q.Language)) {
		return nil, nil
	}

	var out []model.Article
	for _, item := range parsed.Items {
		a, ok := s.normalizer.fromMap(map[string]any{
			"title":       item.Title,
			"description": item.Description,
			"content":     item.Content,
			"source":      parsed.Title,
			"url":         item.Link,
		})
		if !ok {
			continue
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.PublishedAt = *item.UpdatedParsed
		}
		if !q.Since.IsZero() && !a.PublishedAt.IsZero() && a.PublishedAt.Before(q.Since) {
			continue
		}
		if !matchesTopic(a, q.Topic) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func matchesTopic(a model.Article, topic string) bool {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), topic) ||
		strings.Contains(strings.ToLower(a.Description), topic)
}
