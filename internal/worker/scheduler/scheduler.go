// Package scheduler はパイプラインの定期実行を管理する。
// 状態は IDLE と RUNNING の2つで、実行中に発火したトリガーは重複実行せずスキップする。
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/newscast/internal/lock"
)

// ErrRunInProgress は実行中に新たな実行を要求した場合に返される。
var ErrRunInProgress = errors.New("pipeline run already in progress")

// ErrLockHeld は他のワーカープロセスが実行ロックを保持している場合に返される。
var ErrLockHeld = errors.New("pipeline run lock held by another worker")

// デフォルト値
const (
	DefaultInterval   = time.Hour
	DefaultRunTimeout = 5 * time.Minute
)

// スキップ理由
const (
	SkipReasonOverlap = "overlap"
	SkipReasonLocked  = "locked"
)

// トリガー種別
const (
	triggerStartup = "startup"
	triggerTick    = "tick"
	triggerManual  = "manual"
	triggerRunOnce = "run_once"
)

// Runner はパイプライン1回分の実行を表す。
type Runner interface {
	Run(ctx context.Context) error
}

// Locker はプロセス間の実行ロック。lock.RedisLocker が満たす。
type Locker interface {
	TryLock(ctx context.Context) (lock.ReleaseFunc, bool, error)
}

// SkipRecorder はスキップされたトリガーを記録するメトリクス。
type SkipRecorder interface {
	RecordRunSkipped(reason string)
}

// Options はSchedulerの設定。ゼロ値の項目はデフォルト値になる。
type Options struct {
	Interval   time.Duration
	RunTimeout time.Duration
	Clock      Clock
	Locker     Locker       // nilの場合はプロセス内の排他のみ
	Metrics    SkipRecorder // nilの場合は記録しない
}

// Scheduler はパイプラインの定期実行と手動実行を直列化する。
type Scheduler struct {
	runner     Runner
	logger     *slog.Logger
	clock      Clock
	interval   time.Duration
	runTimeout time.Duration
	locker     Locker
	metrics    SkipRecorder

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New はSchedulerを生成する。
func New(runner Runner, logger *slog.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	return &Scheduler{
		runner:     runner,
		logger:     logger,
		clock:      opts.Clock,
		interval:   opts.Interval,
		runTimeout: opts.RunTimeout,
		locker:     opts.Locker,
		metrics:    opts.Metrics,
		stopCh:     make(chan struct{}),
	}
}

// Start は起動直後に1回実行し、その後は一定間隔で実行する。
// ctxのキャンセルまたはStopが呼ばれるまでブロックする。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("パイプラインスケジューラを開始しました",
		slog.Duration("interval", s.interval),
		slog.Duration("run_timeout", s.runTimeout),
	)

	_ = s.run(ctx, triggerStartup)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("パイプラインスケジューラを停止しました")
			return
		case <-s.stopCh:
			s.logger.Info("パイプラインスケジューラを停止しました")
			return
		case <-ticker.C():
			_ = s.run(ctx, triggerTick)
		}
	}
}

// Stop はStartのループを終了させる。複数回呼んでも安全。
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnce はパイプラインを同期的に1回実行する。
// 実行中の場合は ErrRunInProgress を返す。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.run(ctx, triggerRunOnce)
}

// TriggerNow は手動実行を受け付け、バックグラウンドで実行を開始する。
// 実行中の場合は ErrRunInProgress を返す。
// 実行はリクエストのキャンセルとは切り離され、RunTimeoutで打ち切られる。
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.recordSkip(triggerManual, SkipReasonOverlap)
		return ErrRunInProgress
	}

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		_ = s.execute(runCtx, triggerManual)
	}()

	return nil
}

// Running は実行中かどうかを返す。
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Wait はTriggerNowで開始した実行の完了を待つ。
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, trigger string) error {
	if !s.running.CompareAndSwap(false, true) {
		s.recordSkip(trigger, SkipReasonOverlap)
		return ErrRunInProgress
	}
	defer s.running.Store(false)

	return s.execute(ctx, trigger)
}

// execute は実行ロックを取得してパイプラインを実行する。呼び出し側がRUNNINGに遷移済みであること。
func (s *Scheduler) execute(ctx context.Context, trigger string) error {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			s.logger.Error("実行ロックの取得に失敗しました",
				slog.String("trigger", trigger),
				slog.String("error", err.Error()),
			)
			return err
		}
		if !ok {
			s.recordSkip(trigger, SkipReasonLocked)
			return ErrLockHeld
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("実行ロックの解放に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	start := s.clock.Now()
	err := s.runner.Run(runCtx)
	duration := s.clock.Now().Sub(start)

	if err != nil {
		s.logger.Error("パイプラインの実行に失敗しました",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return err
	}

	s.logger.Info("パイプラインの実行が完了しました",
		slog.String("trigger", trigger),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}

func (s *Scheduler) recordSkip(trigger, reason string) {
	s.logger.Warn("パイプライン実行をスキップしました",
		slog.String("trigger", trigger),
		slog.String("reason", reason),
	)
	if s.metrics != nil {
		s.metrics.RecordRunSkipped(reason)
	}
}
