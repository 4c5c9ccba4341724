package scheduler

import "time"

// Ticker は定期的に時刻を配信するティッカー。
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock は現在時刻とティッカーを提供する。テストでは差し替える。
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// SystemClock は time パッケージに委譲する Clock。
type SystemClock struct{}

// Now は現在時刻を返す。
func (SystemClock) Now() time.Time { return time.Now() }

// NewTicker は time.Ticker をラップしたティッカーを返す。
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
