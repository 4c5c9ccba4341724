// Package compose は分類済み記事から放送原稿を組み立てる。
// 入出力を伴わない純粋な処理で、時刻だけを注入されたクロックから得る。
package compose

import (
	"strings"
	"time"

	"github.com/hitoshi/newscast/internal/model"
)

// NoContentScript は記事が0件の場合に返す原稿。
const NoContentScript = "No news articles available at the moment."

// scriptTemplate はナレーション側が文言に依存するため変更しないこと。
const scriptTemplate = `
Good {time_of_day}, I'm your digital news anchor. Here are the latest headlines:

{headlines}

Let's dive into the details:

{detailed_news}

That's all for now. Stay tuned for more updates.
`

// Greeting は時刻の時(0-23)から挨拶の時間帯を返す。
//
//	[05,12) morning / [12,17) afternoon / [17,22) evening / それ以外 night
func Greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}

// Composer は固定テンプレートで放送原稿を生成する。
type Composer struct {
	// Location は挨拶の時間帯を判定するタイムゾーン。nilの場合はUTC。
	Location *time.Location

	now func() time.Time
}

// NewComposer はComposerを生成する。nowがnilの場合はtime.Nowを使う。
func NewComposer(now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{now: now}
}

// Compose は記事一覧から放送原稿を生成する。
// 記事が0件の場合はNoContentScriptを原稿とする。
// Timestampは生成時刻で、IDはストアが採番するため空のまま返す。
func (c *Composer) Compose(articles []model.ClassifiedArticle) model.Broadcast {
	now := c.now()
	b := model.Broadcast{
		Articles:  append([]model.ClassifiedArticle(nil), articles...),
		Timestamp: now,
	}
	if len(articles) == 0 {
		b.Articles = []model.ClassifiedArticle{}
		b.Script = NoContentScript
		return b
	}

	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	r := strings.NewReplacer(
		"{time_of_day}", Greeting(now.In(loc).Hour()),
		"{headlines}", headlines(articles),
		"{detailed_news}", details(articles),
	)
	b.Script = r.Replace(scriptTemplate)
	return b
}

func headlines(articles []model.ClassifiedArticle) string {
	lines := make([]string, len(articles))
	for i, a := range articles {
		lines[i] = "- " + a.Title
	}
	return strings.Join(lines, "\n")
}

func details(articles []model.ClassifiedArticle) string {
	items := make([]string, len(articles))
	for i, a := range articles {
		items[i] = "\nAccording to " + a.Source + ", " + a.Title + ". " + a.Description + "\n"
	}
	return strings.Join(items, "\n")
}
