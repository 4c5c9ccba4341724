// Package security は外部入力を扱う際の防御機能を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// TextSanitizer は外部ソースから届いたHTML混じりの文字列をプレーンテキストに変換する。
// 記事の説明文や本文は原稿やナレーションにそのまま埋め込まれるため、
// タグは全て除去し、エンティティはデコードする。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer は全てのタグを除去するStrictPolicyでTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Text はタグを除去し、HTMLエンティティをデコードし、連続する空白を1つに詰めた文字列を返す。
// 空文字列の入力には空文字列を返す。
func (s *TextSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	// bluemondayは出力をエスケープするため、テキストとして扱う前に戻す
	decoded := html.UnescapeString(stripped)
	return strings.Join(strings.Fields(decoded), " ")
}

// Block はTextと同様に整形するが、改行を保持する。
// 各行の連続する空白を1つに詰め、空行は取り除く。本文のように行単位で扱う文字列に使う。
func (s *TextSanitizer) Block(raw string) string {
	if raw == "" {
		return ""
	}
	decoded := html.UnescapeString(s.policy.Sanitize(raw))

	var lines []string
	for _, line := range strings.FieldsFunc(decoded, isLineBreak) {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}
