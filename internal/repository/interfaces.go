// Package repository は放送原稿の永続化層を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/newscast/internal/model"
)

// BroadcastRepository は放送原稿の永続化を担う。
// 並び順は常にTimestamp降順で、同時刻の場合は挿入順の新しい方を優先する。
type BroadcastRepository interface {
	// Save は放送原稿を保存し、採番したIDを返す。
	// Timestampがゼロ値の場合のみ保存時刻を設定し、bにも書き戻す。
	Save(ctx context.Context, b *model.Broadcast) (string, error)
	// Latest は最新の放送原稿を返す。1件もない場合はnil, nilを返す。
	Latest(ctx context.Context) (*model.Broadcast, error)
	// Prune は新しい順にkeep件を残してそれ以外を削除し、削除件数を返す。
	Prune(ctx context.Context, keep int) (int, error)
}
