// Package speech はテキストの翻訳と音声合成を提供する。
// 放送パイプラインとは独立しており、失敗は呼び出し元へそのまま返す。
package speech

import "strings"

// DefaultLanguageCode は対応表にない言語名に使う音声合成の言語コード。
const DefaultLanguageCode = "en"

var languageCodes = map[string]string{
	"english": "en",
	"urdu":    "ur",
	"spanish": "es",
	"french":  "fr",
	"german":  "de",
	"italian": "it",
}

// LanguageCode は言語名（大文字小文字を区別しない）を音声合成の言語コードに変換する。
func LanguageCode(name string) string {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return DefaultLanguageCode
}
