package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/newscast/internal/llm"
)

const translatorSystemPrompt = "You are a professional translator."

// ErrEmptyTranslation は翻訳結果が空だった場合のエラー。
var ErrEmptyTranslation = errors.New("speech: empty translation")

// Translator はチャット補完APIでテキストを翻訳する。
type Translator struct {
	completer llm.Completer
}

// NewTranslator はTranslatorを生成する。
func NewTranslator(completer llm.Completer) *Translator {
	return &Translator{completer: completer}
}

// Translate はtextをlang（言語名）に翻訳し、前後の空白を除いて返す。
func (t *Translator) Translate(ctx context.Context, text, lang string) (string, error) {
	out, err := t.completer.Complete(ctx, translatorSystemPrompt, TranslationPrompt(text, lang))
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyTranslation
	}
	return out, nil
}

// TranslationPrompt は翻訳用のユーザープロンプトを組み立てる。
func TranslationPrompt(text, lang string) string {
	return "Translate the following text to " + lang + ":\n\n" + text
}
