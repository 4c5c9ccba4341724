package compose

import (
	"regexp"
	"strings"

	"github.com/hitoshi/newscast/internal/classify"
	"github.com/hitoshi/newscast/internal/model"
)

const (
	// minSentenceLength より長い本文の文だけを箇条書きに採用する。
	minSentenceLength = 20
	// maxContentBullets は本文から採用する文の最大数。
	maxContentBullets = 2
)

var sentenceSplit = regexp.MustCompile(`\. |\n`)

// Bullets は1記事分の箇条書き原稿を生成する。
// タイトル、説明文、本文の先頭から20文字を超える文を最大2つ、の順に並べ、
// それぞれにキーワード照合による感情タグを付ける。
func Bullets(a model.Article) []model.Bullet {
	var out []model.Bullet

	if t := strings.TrimSpace(a.Title); t != "" {
		out = append(out, bullet(t))
	}
	if d := strings.TrimSpace(a.Description); d != "" {
		out = append(out, bullet(d))
	}

	taken := 0
	for _, s := range sentenceSplit.Split(a.Content, -1) {
		if taken == maxContentBullets {
			break
		}
		s = strings.TrimSpace(s)
		if len(s) > minSentenceLength {
			out = append(out, bullet(s))
			taken++
		}
	}
	return out
}

// BulletScripts は記事ごとの箇条書き原稿を入力順に生成する。
func BulletScripts(articles []model.ClassifiedArticle) []model.BulletScript {
	out := make([]model.BulletScript, len(articles))
	for i, a := range articles {
		out[i] = model.BulletScript{Script: Bullets(a.Article)}
		if out[i].Script == nil {
			out[i].Script = []model.Bullet{}
		}
	}
	return out
}

func bullet(text string) model.Bullet {
	return model.Bullet{Text: text, Emotion: classify.KeywordEmotion(text)}
}
