// Package cleanup は放送原稿の保持件数ポリシーを適用するジョブを提供する。
// 新しい順に KeepCount 件を残し、それより古い放送原稿を削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultKeepCount は保持する放送原稿のデフォルト件数。
const DefaultKeepCount = 5

// Pruner は保持件数を超えた放送原稿を削除する操作を抽象化するインターフェース。
// repository.BroadcastRepository が満たす。
type Pruner interface {
	Prune(ctx context.Context, keep int) (int, error)
}

// PruneRecorder は削除件数を記録するメトリクス。nilの場合は記録しない。
type PruneRecorder interface {
	RecordBroadcastsPruned(count int)
}

// CleanupJob は保持件数を超過した放送原稿の削除ジョブ。
// 冪等であり、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	store     Pruner
	logger    *slog.Logger
	metrics   PruneRecorder
	KeepCount int // 保持件数（デフォルト: 5）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持件数は5件。
func NewCleanupJob(store Pruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		store:     store,
		logger:    logger,
		KeepCount: DefaultKeepCount,
	}
}

// SetMetrics は削除件数の記録先を設定する。
func (j *CleanupJob) SetMetrics(m PruneRecorder) {
	j.metrics = m
}

// Run は保持件数を超過した放送原稿を削除する。
// 一部の削除に失敗した場合も、削除できた件数を記録した上でエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.store.Prune(ctx, j.KeepCount)
	if deleted > 0 && j.metrics != nil {
		j.metrics.RecordBroadcastsPruned(deleted)
	}
	if err != nil {
		j.logger.Error("放送原稿クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("deleted_count", deleted),
			slog.Int("keep_count", j.KeepCount),
		)
		return fmt.Errorf("放送原稿クリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("放送原稿クリーンアップジョブが完了しました",
		slog.Int("deleted_count", deleted),
		slog.Int("keep_count", j.KeepCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
