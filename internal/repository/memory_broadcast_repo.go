package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newscast/internal/model"
)

// MemoryBroadcastRepo はプロセス内メモリに放送原稿を保持する実装。
// 開発環境とテストで使用する。
type MemoryBroadcastRepo struct {
	mu      sync.Mutex
	records []memoryRecord
	seq     int64
	now     func() time.Time
}

type memoryRecord struct {
	seq       int64
	broadcast model.Broadcast
}

// NewMemoryBroadcastRepo はMemoryBroadcastRepoの新しいインスタンスを生成する。
func NewMemoryBroadcastRepo() *MemoryBroadcastRepo {
	return &MemoryBroadcastRepo{now: time.Now}
}

// Save は放送原稿のコピーを保存する。付与した保存時刻は呼び出し元のbにも反映する。
func (r *MemoryBroadcastRepo) Save(ctx context.Context, b *model.Broadcast) (string, error) {
	if b == nil {
		return "", errors.New("放送原稿がnilです")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Timestamp.IsZero() {
		b.Timestamp = r.now().UTC()
	}
	stored := cloneBroadcast(*b)
	stored.ID = uuid.NewString()
	r.seq++
	r.records = append(r.records, memoryRecord{seq: r.seq, broadcast: stored})

	return stored.ID, nil
}

// Latest は最新の放送原稿のコピーを返す。
func (r *MemoryBroadcastRepo) Latest(ctx context.Context) (*model.Broadcast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return nil, nil
	}

	latest := r.records[0]
	for _, rec := range r.records[1:] {
		if newerThan(rec, latest) {
			latest = rec
		}
	}
	b := cloneBroadcast(latest.broadcast)
	return &b, nil
}

// Prune は新しい順にkeep件を残して削除する。
func (r *MemoryBroadcastRepo) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.New("保持件数は0以上である必要があります")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) <= keep {
		return 0, nil
	}

	sorted := make([]memoryRecord, len(r.records))
	copy(sorted, r.records)
	sort.Slice(sorted, func(i, j int) bool { return newerThan(sorted[i], sorted[j]) })

	deleted := len(sorted) - keep
	r.records = sorted[:keep:keep]
	return deleted, nil
}

// Len は保持している件数を返す。
func (r *MemoryBroadcastRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func newerThan(a, b memoryRecord) bool {
	if !a.broadcast.Timestamp.Equal(b.broadcast.Timestamp) {
		return a.broadcast.Timestamp.After(b.broadcast.Timestamp)
	}
	return a.seq > b.seq
}

func cloneBroadcast(b model.Broadcast) model.Broadcast {
	out := b
	out.Articles = make([]model.ClassifiedArticle, len(b.Articles))
	copy(out.Articles, b.Articles)
	return out
}
