package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/newscast/internal/model"
)

// DefaultMongoCollection は放送原稿を保存するコレクション名。
const DefaultMongoCollection = "news_broadcasts"

// mongoCollection はMongoBroadcastRepoが使用するコレクション操作。
// *mongo.Collectionが満たす。
type mongoCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// mongoBroadcastDoc はコレクション上のドキュメント表現。
type mongoBroadcastDoc struct {
	ID        primitive.ObjectID        `bson:"_id"`
	Script    string                    `bson:"script"`
	Articles  []model.ClassifiedArticle `bson:"articles"`
	Timestamp time.Time                 `bson:"timestamp"`
}

// newestFirst は最新順の並び。_idは同一時刻内の挿入順を表す。
var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

// MongoBroadcastRepo はMongoDBを使用した放送原稿リポジトリ。
type MongoBroadcastRepo struct {
	coll mongoCollection
	now  func() time.Time
}

// NewMongoBroadcastRepo はMongoBroadcastRepoを生成する。
func NewMongoBroadcastRepo(coll *mongo.Collection) *MongoBroadcastRepo {
	return newMongoBroadcastRepo(coll)
}

func newMongoBroadcastRepo(coll mongoCollection) *MongoBroadcastRepo {
	return &MongoBroadcastRepo{coll: coll, now: time.Now}
}

// Save は放送原稿を1ドキュメントとして挿入し、ObjectIDの16進表記を返す。
func (r *MongoBroadcastRepo) Save(ctx context.Context, b *model.Broadcast) (string, error) {
	if b == nil {
		return "", errors.New("放送原稿がnilです")
	}

	if b.Timestamp.IsZero() {
		b.Timestamp = r.now().UTC()
	}
	doc := mongoBroadcastDoc{
		ID:        primitive.NewObjectID(),
		Script:    b.Script,
		Articles:  b.Articles,
		Timestamp: b.Timestamp.UTC(),
	}
	if doc.Articles == nil {
		doc.Articles = []model.ClassifiedArticle{}
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("放送原稿の保存に失敗しました: %w", err)
	}

	return doc.ID.Hex(), nil
}

// Latest は最新の放送原稿を取得する。存在しない場合はnilを返す。
func (r *MongoBroadcastRepo) Latest(ctx context.Context) (*model.Broadcast, error) {
	var doc mongoBroadcastDoc
	err := r.coll.FindOne(ctx, bson.D{}, options.FindOne().SetSort(newestFirst)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("放送原稿の取得に失敗しました: %w", err)
	}

	return &model.Broadcast{
		ID:        doc.ID.Hex(),
		Script:    doc.Script,
		Articles:  doc.Articles,
		Timestamp: doc.Timestamp.UTC(),
	}, nil
}

// Prune は新しい順にkeep件を残して削除する。
// 個別の削除失敗は集約して返し、残りの削除は続行する。
func (r *MongoBroadcastRepo) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.New("保持件数は0以上である必要があります")
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(keep)).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return 0, fmt.Errorf("削除対象の検索に失敗しました: %w", err)
	}

	var stale []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &stale); err != nil {
		return 0, fmt.Errorf("削除対象の読み込みに失敗しました: %w", err)
	}

	deleted := 0
	var errs []error
	for _, s := range stale {
		res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: s.ID}})
		if err != nil {
			errs = append(errs, fmt.Errorf("放送原稿 %s の削除に失敗しました: %w", s.ID.Hex(), err))
			continue
		}
		deleted += int(res.DeletedCount)
	}

	return deleted, errors.Join(errs...)
}
