package model

import "time"

// Broadcast はパイプライン1回分の成果物として永続化される放送原稿。
// 作成後は変更されず、保持件数ポリシーによってのみ削除される。
type Broadcast struct {
	ID        string              `json:"id"`
	Script    string              `json:"script"`
	Articles  []ClassifiedArticle `json:"articles"`
	Timestamp time.Time           `json:"timestamp"`
}

// Bullet は箇条書き原稿の1要素。ナレーションやアニメーションのキューとして使う。
type Bullet struct {
	Text    string `json:"bullet"`
	Emotion string `json:"emotion"`
}

// BulletScript は1記事分の箇条書き原稿。
type BulletScript struct {
	Script []Bullet `json:"script"`
}
