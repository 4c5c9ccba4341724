// Package source はニュース記事の取得元（ArticleSource）を提供する。
// 取得失敗は呼び出し元にエラーとして返さず、ログに記録した上で空の結果として扱う。
package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/newscast/internal/model"
)

// Query は1回の取得条件。
type Query struct {
	Topic    string
	Since    time.Time
	Language string
	PageSize int
}

// ArticleSource は最近の記事を取得するインターフェース。
// 失敗時は空スライスを返す。パイプラインは記事0件を正常な結果として扱う。
type ArticleSource interface {
	Fetch(ctx context.Context, q Query) []model.Article
}

// Fallback は複数のソースを順に試し、最初に記事を返したソースの結果を採用する。
type Fallback struct {
	sources []ArticleSource
	logger  *slog.Logger
}

// NewFallback は指定順でソースを試すFallbackを生成する。
func NewFallback(logger *slog.Logger, sources ...ArticleSource) *Fallback {
	return &Fallback{sources: sources, logger: logger}
}

// Fetch は各ソースを順に呼び出し、空でない最初の結果を返す。
func (f *Fallback) Fetch(ctx context.Context, q Query) []model.Article {
	for i, s := range f.sources {
		articles := s.Fetch(ctx, q)
		if len(articles) > 0 {
			return capArticles(articles, q.PageSize)
		}
		if ctx.Err() != nil {
			return nil
		}
		if i < len(f.sources)-1 {
			f.logger.Info("記事が取得できなかったため次のソースを試します",
				slog.Int("source_index", i),
			)
		}
	}
	return nil
}

func capArticles(articles []model.Article, pageSize int) []model.Article {
	if pageSize > 0 && len(articles) > pageSize {
		return articles[:pageSize]
	}
	return articles
}
