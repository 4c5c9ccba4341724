// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 実行結果ラベル
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// MetricsCollector はメトリクス収集のインターフェース。
// パイプライン、スケジューラ、音声変換ハンドラから利用する。
type MetricsCollector interface {
	RecordRunSuccess(duration time.Duration)
	RecordRunFailure(stage string, duration time.Duration)
	RecordRunSkipped(reason string)
	RecordArticlesFetched(count int)
	RecordClassificationFallback(reason string)
	RecordBroadcastsPruned(count int)
	RecordSpeechFailure(stage string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	runs             *prometheus.CounterVec
	runFailures      *prometheus.CounterVec
	runSkips         *prometheus.CounterVec
	runDuration      prometheus.Histogram
	articlesFetched  prometheus.Counter
	classifyFallback *prometheus.CounterVec
	broadcastsPruned prometheus.Counter
	speechFailures   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscast_pipeline_runs_total",
			Help: "パイプライン実行の結果別合計数",
		}, []string{"result"}),
		runFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscast_pipeline_failures_total",
			Help: "パイプライン実行失敗の段階別合計数",
		}, []string{"stage"}),
		runSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscast_pipeline_skipped_total",
			Help: "スキップされた実行トリガーの理由別合計数",
		}, []string{"reason"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newscast_pipeline_run_duration_seconds",
			Help:    "パイプライン1回分の実行時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		articlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newscast_articles_fetched_total",
			Help: "ニュースソースから取得した記事の合計数",
		}),
		classifyFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscast_classification_fallback_total",
			Help: "フォールバック分類が適用された記事の理由別合計数",
		}, []string{"reason"}),
		broadcastsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newscast_broadcasts_pruned_total",
			Help: "保持件数ポリシーで削除された放送原稿の合計数",
		}),
		speechFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newscast_speech_failures_total",
			Help: "翻訳・音声合成失敗の段階別合計数",
		}, []string{"stage"}),
	}

	reg.MustRegister(
		c.runs,
		c.runFailures,
		c.runSkips,
		c.runDuration,
		c.articlesFetched,
		c.classifyFallback,
		c.broadcastsPruned,
		c.speechFailures,
	)

	return c
}

// RecordRunSuccess はパイプライン実行の成功を記録する。
func (c *Collector) RecordRunSuccess(duration time.Duration) {
	c.runs.WithLabelValues(ResultSuccess).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordRunFailure はパイプライン実行の失敗を段階名付きで記録する。
func (c *Collector) RecordRunFailure(stage string, duration time.Duration) {
	c.runs.WithLabelValues(ResultFailure).Inc()
	c.runFailures.WithLabelValues(stage).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordRunSkipped は実行中などの理由でスキップされたトリガーを記録する。
func (c *Collector) RecordRunSkipped(reason string) {
	c.runs.WithLabelValues(ResultSkipped).Inc()
	c.runSkips.WithLabelValues(reason).Inc()
}

// RecordArticlesFetched は取得した記事数を記録する。
func (c *Collector) RecordArticlesFetched(count int) {
	c.articlesFetched.Add(float64(count))
}

// RecordClassificationFallback はフォールバック分類を記録する。
func (c *Collector) RecordClassificationFallback(reason string) {
	c.classifyFallback.WithLabelValues(reason).Inc()
}

// RecordBroadcastsPruned は削除された放送原稿数を記録する。
func (c *Collector) RecordBroadcastsPruned(count int) {
	c.broadcastsPruned.Add(float64(count))
}

// RecordSpeechFailure は翻訳または音声合成の失敗を記録する。
func (c *Collector) RecordSpeechFailure(stage string) {
	c.speechFailures.WithLabelValues(stage).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// ワーカープロセスのスクレイプ用に使う。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
