// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Article はニュースソースから取得した記事を表す。
// 1回のパイプライン実行の間だけ保持され、取得後は変更しない。
type Article struct {
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Content     string    `json:"content" bson:"content"` // ソース側で切り詰められている場合がある
	Source      string    `json:"source" bson:"source"`   // 配信元の名称
	URL         string    `json:"url,omitempty" bson:"url,omitempty"`
	PublishedAt time.Time `json:"published_at" bson:"published_at"`
}

// Category は記事のトピック分類を表す。
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategorySports        Category = "sports"
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategoryScience       Category = "science"
	CategoryEnvironment   Category = "environment"
	CategoryWar           Category = "war"
	CategoryInternational Category = "international"
	CategoryWeather       Category = "weather"
	CategoryCrime         Category = "crime"
	// CategoryOther は分類不能・未知の値に対するフォールバック。
	CategoryOther Category = "other"
)

// knownCategories はother以外の分類語彙。プロンプトに列挙する順序でもある。
var knownCategories = []Category{
	CategoryPolitics,
	CategorySports,
	CategoryTechnology,
	CategoryBusiness,
	CategoryEntertainment,
	CategoryHealth,
	CategoryScience,
	CategoryEnvironment,
	CategoryWar,
	CategoryInternational,
	CategoryWeather,
	CategoryCrime,
}

// KnownCategories はother以外の分類語彙のコピーを返す。
func KnownCategories() []Category {
	out := make([]Category, len(knownCategories))
	copy(out, knownCategories)
	return out
}

// ParseCategory は文字列を分類に変換する。
// 大文字小文字と前後の空白は無視し、語彙にない値はCategoryOtherになる。
func ParseCategory(s string) Category {
	v := Category(strings.ToLower(strings.TrimSpace(s)))
	if v.Valid() {
		return v
	}
	return CategoryOther
}

// Valid は分類が語彙（otherを含む）に含まれるかを返す。
func (c Category) Valid() bool {
	if c == CategoryOther {
		return true
	}
	for _, k := range knownCategories {
		if c == k {
			return true
		}
	}
	return false
}

// EmotionNeutral は分類フォールバック時の感情値。
const EmotionNeutral = "neutral"

// ClassifiedArticle は分類結果を付与した記事。
type ClassifiedArticle struct {
	Article  `bson:",inline"`
	Category Category `json:"category" bson:"category"`
	Emotion  string   `json:"emotion" bson:"emotion"`

	// FallbackReason はフォールバックが適用された原因。正常分類時は空。
	FallbackReason string `json:"-" bson:"-"`
}

// Degraded はフォールバック分類が適用されたかを返す。
func (c ClassifiedArticle) Degraded() bool {
	return c.FallbackReason != ""
}
