package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/newscast/internal/model"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Tech Wire</title>
  <language>en-us</language>
  <item>
    <title>Older technology story</title>
    <description>Published before the window</description>
    <pubDate>Mon, 12 Oct 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>New technology launch</title>
    <description>&lt;b&gt;Big&lt;/b&gt; reveal</description>
    <link>https://example.com/launch</link>
    <pubDate>Sat, 17 Oct 2026 12:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Garden show results</title>
    <description>Flowers everywhere</description>
    <pubDate>Sat, 17 Oct 2026 13:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Latest technology funding round</title>
    <description>Startups raise money</description>
    <pubDate>Sat, 17 Oct 2026 15:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestFeedSource_Fetch_FiltersAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer server.Close()

	var buf bytes.Buffer
	s := NewFeedSource(server.Client(), newTestLogger(&buf), []string{server.URL}, 0)

	got := s.Fetch(context.Background(), testQuery())
	if len(got) != 2 {
		t.Fatalf("記事数 = %d, want 2: %+v", len(got), got)
	}

	// 新しい順
	if got[0].Title != "Latest technology funding round" {
		t.Errorf("1件目 = %q", got[0].Title)
	}
	if got[1].Title != "New technology launch" {
		t.Errorf("2件目 = %q", got[1].Title)
	}
	if got[1].Description != "Big reveal" {
		t.Errorf("Description = %q, want %q", got[1].Description, "Big reveal")
	}
	if got[1].Source != "Tech Wire" {
		t.Errorf("Source = %q, want Tech Wire", got[1].Source)
	}
	if got[1].URL != "https://example.com/launch" {
		t.Errorf("URL = %q", got[1].URL)
	}
}

func TestFeedSource_Fetch_SkipsFailingFeeds(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer broken.Close()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer garbage.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer good.Close()

	var buf bytes.Buffer
	s := NewFeedSource(http.DefaultClient, newTestLogger(&buf), []string{broken.URL, garbage.URL, good.URL}, 0)

	got := s.Fetch(context.Background(), testQuery())
	if len(got) != 2 {
		t.Fatalf("正常なフィードの記事だけが返るべき: got %d", len(got))
	}
	if !bytes.Contains(buf.Bytes(), []byte("フィードの取得に失敗しました")) {
		t.Errorf("失敗したフィードはログに記録されるべき: %s", buf.String())
	}
}

func TestFeedSource_Fetch_SkipsOtherLanguages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Le Monde</title><language>fr</language>
<item><title>technology en France</title><pubDate>Sat, 17 Oct 2026 12:00:00 GMT</pubDate></item></channel></rss>`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	s := NewFeedSource(server.Client(), newTestLogger(&buf), []string{server.URL}, 0)

	if got := s.Fetch(context.Background(), testQuery()); len(got) != 0 {
		t.Errorf("言語が異なるフィードは除外されるべき: got %d", len(got))
	}
}

type stubSource struct {
	articles []model.Article
	calls    int
}

func (s *stubSource) Fetch(ctx context.Context, q Query) []model.Article {
	s.calls++
	return s.articles
}

func TestFallback_UsesFirstNonEmptySource(t *testing.T) {
	empty := &stubSource{}
	second := &stubSource{articles: []model.Article{{Title: "a"}, {Title: "b"}}}
	third := &stubSource{articles: []model.Article{{Title: "c"}}}

	var buf bytes.Buffer
	f := NewFallback(newTestLogger(&buf), empty, second, third)

	got := f.Fetch(context.Background(), Query{PageSize: 1})
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("2番目のソースの結果をページサイズで切り詰めて返すべき: %+v", got)
	}
	if empty.calls != 1 || second.calls != 1 || third.calls != 0 {
		t.Errorf("calls = %d/%d/%d, want 1/1/0", empty.calls, second.calls, third.calls)
	}
}

func TestFallback_AllEmpty(t *testing.T) {
	var buf bytes.Buffer
	f := NewFallback(newTestLogger(&buf), &stubSource{}, &stubSource{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if got := f.Fetch(ctx, testQuery()); len(got) != 0 {
		t.Errorf("全ソースが空の場合は空を返すべき: %+v", got)
	}
}
