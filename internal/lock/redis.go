// Package lock はワーカープロセス間でパイプライン実行を排他するための分散ロックを提供する。
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultKey はパイプライン実行ロックのキー。
const DefaultKey = "newscast:pipeline:run"

// releaseScript は自分が保持しているロックだけを削除する。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseFunc は取得したロックを解放する。
type ReleaseFunc func(ctx context.Context) error

// RedisLocker はRedisのSET NXによる実行ロック。
// TTLを超えたロックは自動的に失効するため、プロセスが異常終了しても残り続けない。
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLocker はRedisLockerを生成する。keyが空の場合はDefaultKeyを使う。
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// NewRedisClient はRedisクライアントを生成し、疎通を確認する。
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// TryLock はロックの取得を1回だけ試みる。
// 他のプロセスが保持している場合は acquired=false を返す。
func (l *RedisLocker) TryLock(ctx context.Context) (ReleaseFunc, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("実行ロックの取得に失敗しました: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("実行ロックの解放に失敗しました: %w", err)
		}
		return nil
	}

	return release, true, nil
}
