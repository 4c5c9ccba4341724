package source

import (
	"context"
	"time"
)

// statusClass はHTTPステータスコードの扱いを表す。
type statusClass int

const (
	statusOK statusClass = iota
	// statusRetry は時間をおいて再試行する価値があるステータス（429/5xx）。
	statusRetry
	// statusFail は再試行しても結果が変わらないステータス。
	statusFail
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

func classifyStatus(code int) statusClass {
	switch {
	case code == 200:
		return statusOK
	case code == 429 || code >= 500:
		return statusRetry
	default:
		return statusFail
	}
}

// backoffDelay は試行回数に応じた指数バックオフ遅延を返す。
// 初回500ms、2倍ずつ増加、最大5秒。
func backoffDelay(attempt int) time.Duration {
	delay := initialBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// sleepContext はコンテキストがキャンセルされるまで最大dだけ待つ。
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
