package source

import (
	"strings"
	"time"

	"github.com/hitoshi/newscast/internal/model"
	"github.com/hitoshi/newscast/internal/security"
)

// removedTitle はNewsAPIが削除済み記事に設定するプレースホルダー。
const removedTitle = "[Removed]"

// normalizer は外部ペイロードの緩い形式をmodel.Articleへ写像する。
// 欠損や型違いのフィールドは空文字列・ゼロ値で補う。
type normalizer struct {
	sanitizer *security.TextSanitizer
}

func newNormalizer() *normalizer {
	return &normalizer{sanitizer: security.NewTextSanitizer()}
}

// fromMap はJSONオブジェクトをArticleに変換する。
// タイトルが空、または削除済みの記事はfalseを返す。
func (n *normalizer) fromMap(m map[string]any) (model.Article, bool) {
	a := model.Article{
		Title:       n.sanitizer.Text(stringField(m, "title")),
		Description: n.sanitizer.Text(stringField(m, "description")),
		Content:     n.sanitizer.Block(stringField(m, "content")),
		Source:      sourceName(m["source"]),
		URL:         strings.TrimSpace(stringField(m, "url")),
		PublishedAt: parseTime(stringField(m, "publishedAt")),
	}
	if a.Title == "" || a.Title == removedTitle {
		return model.Article{}, false
	}
	return a, true
}

// stringField はキーの値が文字列の場合のみ返す。
func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// sourceName はsourceフィールドが {"name": ...} でも文字列でも配信元名を返す。
func sourceName(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case map[string]any:
		if name, ok := s["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
