package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newTestClient(t *testing.T, server *httptest.Server, buf *bytes.Buffer, maxRetries int) *NewsAPIClient {
	t.Helper()
	c := NewNewsAPIClient(server.Client(), newTestLogger(buf), NewsAPIConfig{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		MaxRetries: maxRetries,
	})
	c.sleep = noSleep
	return c
}

func testQuery() Query {
	return Query{
		Topic:    "technology",
		Since:    time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Language: "en",
		PageSize: 5,
	}
}

const okBody = `{
  "status": "ok",
  "totalResults": 3,
  "articles": [
    {"source": {"id": null, "name": "BBC News"}, "title": "Chip makers rally", "description": "<p>Shares &amp; bonds</p>", "content": "Long body text here. More text [+200 chars]", "url": "https://example.com/a", "publishedAt": "2026-10-17T10:00:00Z"},
    {"source": "Reuters", "title": "Storm hits coast", "description": null, "content": 42, "publishedAt": "not-a-date"},
    {"source": {"name": "Removed"}, "title": "[Removed]", "description": "[Removed]"},
    {"source": {"name": "Nobody"}, "description": "no title"}
  ]
}`

func TestNewsAPIClient_Fetch_SendsExpectedParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "technology" {
			t.Errorf("q = %q, want technology", q.Get("q"))
		}
		if q.Get("from") != "2026-10-17" {
			t.Errorf("from = %q, want 2026-10-17", q.Get("from"))
		}
		if q.Get("sortBy") != "popularity" {
			t.Errorf("sortBy = %q, want popularity", q.Get("sortBy"))
		}
		if q.Get("language") != "en" {
			t.Errorf("language = %q, want en", q.Get("language"))
		}
		if q.Get("pageSize") != "5" {
			t.Errorf("pageSize = %q, want 5", q.Get("pageSize"))
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q, want test-key", got)
		}
		if q.Get("apiKey") != "" {
			t.Error("APIキーをクエリ文字列に含めてはならない")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","articles":[]}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf, 0)

	if got := c.Fetch(context.Background(), testQuery()); len(got) != 0 {
		t.Errorf("記事数 = %d, want 0", len(got))
	}
}

func TestNewsAPIClient_Fetch_NormalizesArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okBody)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf, 0)

	articles := c.Fetch(context.Background(), testQuery())
	if len(articles) != 2 {
		t.Fatalf("記事数 = %d, want 2 (タイトルなし・削除済みは除外)", len(articles))
	}

	first := articles[0]
	if first.Title != "Chip makers rally" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Description != "Shares & bonds" {
		t.Errorf("Description = %q, want %q", first.Description, "Shares & bonds")
	}
	if first.Source != "BBC News" {
		t.Errorf("Source = %q, want BBC News", first.Source)
	}
	if first.URL != "https://example.com/a" {
		t.Errorf("URL = %q", first.URL)
	}
	if !first.PublishedAt.Equal(time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", first.PublishedAt)
	}

	// スキーマのずれは空文字列・ゼロ値で補われる
	second := articles[1]
	if second.Source != "Reuters" {
		t.Errorf("文字列のsourceも配信元名として扱うべき: got %q", second.Source)
	}
	if second.Description != "" || second.Content != "" {
		t.Errorf("型違い・nullのフィールドは空文字列になるべき: %+v", second)
	}
	if !second.PublishedAt.IsZero() {
		t.Errorf("不正な日時はゼロ値になるべき: %v", second.PublishedAt)
	}
}

func TestNewsAPIClient_Fetch_CapsPageSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items []string
		for i := 0; i < 8; i++ {
			items = append(items, fmt.Sprintf(`{"title":"story %d","source":{"name":"S"}}`, i))
		}
		fmt.Fprintf(w, `{"status":"ok","articles":[%s]}`, strings.Join(items, ","))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf, 0)

	if got := c.Fetch(context.Background(), testQuery()); len(got) != 5 {
		t.Errorf("記事数 = %d, want 5", len(got))
	}
}

func TestNewsAPIClient_Fetch_FailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status error", http.StatusOK, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`},
		{"malformed json", http.StatusOK, `{"status":`},
		{"unauthorized", http.StatusUnauthorized, `{"status":"error"}`},
		{"server error", http.StatusInternalServerError, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			var buf bytes.Buffer
			c := newTestClient(t, server, &buf, 1)

			got := c.Fetch(context.Background(), testQuery())
			if len(got) != 0 {
				t.Errorf("失敗時は空スライスを返すべき: got %d", len(got))
			}
			if !strings.Contains(buf.String(), `"level":"WARN"`) {
				t.Errorf("失敗は警告ログに記録されるべき: %s", buf.String())
			}
		})
	}
}

func TestNewsAPIClient_Fetch_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"status":"ok","articles":[{"title":"Recovered","source":{"name":"S"}}]}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf, 2)

	got := c.Fetch(context.Background(), testQuery())
	if len(got) != 1 || got[0].Title != "Recovered" {
		t.Fatalf("再試行後に記事を取得できるべき: %+v", got)
	}
	if calls.Load() != 3 {
		t.Errorf("呼び出し回数 = %d, want 3", calls.Load())
	}
}

func TestNewsAPIClient_Fetch_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf, 3)

	c.Fetch(context.Background(), testQuery())
	if calls.Load() != 1 {
		t.Errorf("400は再試行すべきでない: calls = %d", calls.Load())
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := map[int]statusClass{
		200: statusOK,
		429: statusRetry,
		500: statusRetry,
		503: statusRetry,
		400: statusFail,
		401: statusFail,
		404: statusFail,
		301: statusFail,
	}
	for code, want := range tests {
		if got := classifyStatus(code); got != want {
			t.Errorf("classifyStatus(%d) = %v, want %v", code, got, want)
		}
	}
}
