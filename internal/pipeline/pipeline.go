// Package pipeline はニュース放送原稿の生成を1回分実行する。
// 取得 → 分類 → 原稿生成 → 保存 → 保持件数の適用 → 箇条書き出力 → 配信 の順に処理する。
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newscast/internal/compose"
	"github.com/hitoshi/newscast/internal/model"
	"github.com/hitoshi/newscast/internal/notify"
	"github.com/hitoshi/newscast/internal/repository"
	"github.com/hitoshi/newscast/internal/source"
)

// 失敗段階（メトリクスのラベルにも使う）
const (
	StageSave = "save"
)

// Classifier は記事一覧を分類する。入力と同じ長さ・順序の結果を返すこと。
type Classifier interface {
	ClassifyAll(ctx context.Context, articles []model.Article) []model.ClassifiedArticle
}

// Composer は分類済み記事から放送原稿を生成する。
type Composer interface {
	Compose(articles []model.ClassifiedArticle) model.Broadcast
}

// BulletinWriter は箇条書き原稿を書き出す。
type BulletinWriter interface {
	Write(scripts []model.BulletScript) error
}

// Retention は保持件数ポリシーを適用する。
type Retention interface {
	Run(ctx context.Context) error
}

// Recorder はパイプラインのメトリクス記録先。
type Recorder interface {
	RecordRunSuccess(duration time.Duration)
	RecordRunFailure(stage string, duration time.Duration)
	RecordArticlesFetched(count int)
	RecordClassificationFallback(reason string)
}

// QueryConfig は記事取得条件の設定。
type QueryConfig struct {
	Topic    string
	Language string
	PageSize int
	Window   time.Duration // 現在時刻からさかのぼる取得範囲
}

// Deps はPipelineの依存。Retention, Bulletin, Notifier, Metrics は省略できる。
type Deps struct {
	Source     source.ArticleSource
	Classifier Classifier
	Composer   Composer
	Store      repository.BroadcastRepository
	Retention  Retention
	Bulletin   BulletinWriter
	Notifier   notify.Notifier
	Metrics    Recorder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline は1回分のパイプライン実行を担う。
type Pipeline struct {
	deps  Deps
	query QueryConfig
}

// New はPipelineを生成する。
func New(deps Deps, query QueryConfig) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps, query: query}
}

// Run はパイプラインを1回実行する。
// 記事が0件の場合は何もせずnilを返す。
// 取得と分類の失敗は縮退して続行し、保存の失敗だけをエラーとして返す。
// 保存後の処理（保持件数の適用、箇条書き出力、配信）の失敗はログに記録して続行する。
func (p *Pipeline) Run(ctx context.Context) error {
	start := p.deps.Now()
	logger := p.deps.Logger

	q := source.Query{
		Topic:    p.query.Topic,
		Since:    start.Add(-p.query.Window),
		Language: p.query.Language,
		PageSize: p.query.PageSize,
	}
	articles := p.deps.Source.Fetch(ctx, q)
	logger.Info("記事を取得しました",
		slog.Int("article_count", len(articles)),
		slog.String("topic", q.Topic),
	)

	if len(articles) == 0 {
		// 記事がない回は何も保存しない。保持件数の適用で過去の原稿が押し出されるのを防ぐ
		duration := p.deps.Now().Sub(start)
		p.recordMetrics(articles, nil, nil, duration)
		logger.Info("記事がないため放送原稿の生成をスキップしました",
			slog.String("topic", q.Topic),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return nil
	}

	classified := p.deps.Classifier.ClassifyAll(ctx, articles)

	b := p.deps.Composer.Compose(classified)

	id, err := p.deps.Store.Save(ctx, &b)
	if err != nil {
		duration := p.deps.Now().Sub(start)
		logger.Error("放送原稿の保存に失敗しました",
			slog.String("error", err.Error()),
			slog.String("timestamp", b.Timestamp.UTC().Format(time.RFC3339)),
			slog.Int("article_count", len(b.Articles)),
		)
		p.recordMetrics(articles, classified, err, duration)
		return fmt.Errorf("放送原稿の保存に失敗しました: %w", err)
	}
	b.ID = id

	if p.deps.Retention != nil {
		if err := p.deps.Retention.Run(ctx); err != nil {
			logger.Warn("保持件数ポリシーの適用に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	if p.deps.Bulletin != nil {
		if err := p.deps.Bulletin.Write(compose.BulletScripts(classified)); err != nil {
			logger.Warn("箇条書き原稿の書き出しに失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(ctx, &b); err != nil {
			logger.Warn("放送原稿の配信に失敗しました",
				slog.String("broadcast_id", b.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	duration := p.deps.Now().Sub(start)
	p.recordMetrics(articles, classified, nil, duration)
	logger.Info("放送原稿を生成しました",
		slog.String("broadcast_id", b.ID),
		slog.Int("article_count", len(b.Articles)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

func (p *Pipeline) recordMetrics(articles []model.Article, classified []model.ClassifiedArticle, runErr error, duration time.Duration) {
	m := p.deps.Metrics
	if m == nil {
		return
	}

	m.RecordArticlesFetched(len(articles))
	for _, c := range classified {
		if c.Degraded() {
			m.RecordClassificationFallback(c.FallbackReason)
		}
	}

	if runErr != nil {
		m.RecordRunFailure(StageSave, duration)
		return
	}
	m.RecordRunSuccess(duration)
}

