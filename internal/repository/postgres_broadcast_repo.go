package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/hitoshi/newscast/internal/model"
)

// psql はPostgreSQL用のプレースホルダ（$1, $2...）を使うクエリビルダ。
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresBroadcastRepo はPostgreSQLを使用した放送原稿リポジトリ。
// 記事一覧はJSONBカラムに埋め込んで保存する。
type PostgresBroadcastRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresBroadcastRepo はPostgresBroadcastRepoを生成する。
func NewPostgresBroadcastRepo(db *sql.DB) *PostgresBroadcastRepo {
	return &PostgresBroadcastRepo{db: db, now: time.Now}
}

// Save は放送原稿を1件挿入する。
func (r *PostgresBroadcastRepo) Save(ctx context.Context, b *model.Broadcast) (string, error) {
	if b == nil {
		return "", errors.New("放送原稿がnilです")
	}

	articles := b.Articles
	if articles == nil {
		articles = []model.ClassifiedArticle{}
	}
	articlesJSON, err := json.Marshal(articles)
	if err != nil {
		return "", fmt.Errorf("記事一覧のエンコードに失敗しました: %w", err)
	}

	if b.Timestamp.IsZero() {
		b.Timestamp = r.now().UTC()
	}
	ts := b.Timestamp

	id := uuid.NewString()
	query, args, err := psql.Insert("broadcasts").
		Columns("id", "script", "articles", "broadcast_at").
		Values(id, b.Script, string(articlesJSON), ts.UTC()).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("クエリの構築に失敗しました: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("放送原稿の保存に失敗しました: %w", err)
	}

	return id, nil
}

// Latest は最新の放送原稿を取得する。存在しない場合はnilを返す。
func (r *PostgresBroadcastRepo) Latest(ctx context.Context) (*model.Broadcast, error) {
	query, args, err := psql.Select("id", "script", "articles", "broadcast_at").
		From("broadcasts").
		OrderBy("broadcast_at DESC", "seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("クエリの構築に失敗しました: %w", err)
	}

	b := &model.Broadcast{}
	var articlesJSON []byte
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.Script, &articlesJSON, &b.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("放送原稿の取得に失敗しました: %w", err)
	}

	if err := json.Unmarshal(articlesJSON, &b.Articles); err != nil {
		return nil, fmt.Errorf("記事一覧のデコードに失敗しました: %w", err)
	}
	b.Timestamp = b.Timestamp.UTC()

	return b, nil
}

// Prune は新しい順にkeep件を残して、それより古い放送原稿を1文で削除する。
func (r *PostgresBroadcastRepo) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.New("保持件数は0以上である必要があります")
	}

	query, args, err := psql.Delete("broadcasts").
		Where(sq.Expr("id IN (SELECT id FROM broadcasts ORDER BY broadcast_at DESC, seq DESC OFFSET ?)", keep)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("クエリの構築に失敗しました: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("古い放送原稿の削除に失敗しました: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	return int(n), nil
}
