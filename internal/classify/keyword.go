package classify

import (
	"regexp"
	"strings"
)

// 局所的な感情タグ
const (
	EmotionSurprised = "surprised"
	EmotionHappy     = "happy"
	EmotionSad       = "sad"
	EmotionAngry     = "angry"
	EmotionNeutral   = "neutral"
)

// emotionRules は評価順に並べたキーワード規則。最初に一致したものを採用する。
var emotionRules = []struct {
	emotion string
	pattern *regexp.Regexp
}{
	{EmotionSurprised, regexp.MustCompile(`shock|surprise|unexpected|stunned`)},
	{EmotionHappy, regexp.MustCompile(`win|victory|achievement|milestone`)},
	{EmotionSad, regexp.MustCompile(`loss|death|defeat|disaster`)},
	{EmotionAngry, regexp.MustCompile(`criticize|attack|blame|anger`)},
}

// KeywordEmotion はテキストをキーワード照合で感情タグに写像する。
// 外部呼び出しを行わず、一致がなければneutralを返す。
func KeywordEmotion(text string) string {
	lower := strings.ToLower(text)
	for _, r := range emotionRules {
		if r.pattern.MatchString(lower) {
			return r.emotion
		}
	}
	return EmotionNeutral
}
