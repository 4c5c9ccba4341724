// Package classify は記事のトピック分類と感情推定を提供する。
// AI分類器は外部のチャット補完APIを呼び出し、失敗した記事だけをフォールバック値で埋める。
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/newscast/internal/llm"
	"github.com/hitoshi/newscast/internal/model"
)

// ErrMalformedResponse は応答が "Category:" / "Emotion:" の2行形式でない場合のエラー。
var ErrMalformedResponse = errors.New("classify: malformed classifier response")

// フォールバック理由（メトリクスのラベルにも使う）
const (
	ReasonTimeout   = "timeout"
	ReasonCanceled  = "canceled"
	ReasonMalformed = "malformed_response"
	ReasonCallError = "call_failed"
)

// Result は1記事分の分類結果。Errが非nilの場合、Category/Emotionはフォールバック値。
type Result struct {
	Category model.Category
	Emotion  string
	Err      error
}

// Fallback はErrを理由とするフォールバック結果を返す。
func Fallback(err error) Result {
	return Result{Category: model.CategoryOther, Emotion: model.EmotionNeutral, Err: err}
}

// Reason はフォールバックの原因を分類した文字列を返す。成功時は空文字列。
func (r Result) Reason() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(r.Err, context.Canceled):
		return ReasonCanceled
	case errors.Is(r.Err, ErrMalformedResponse):
		return ReasonMalformed
	default:
		return ReasonCallError
	}
}

// Classifier はチャット補完APIで記事を分類する。
type Classifier struct {
	completer llm.Completer
	logger    *slog.Logger
	limiter   *rate.Limiter
}

// NewClassifier はClassifierを生成する。
// intervalは連続するAPI呼び出しの最小間隔で、0以下の場合は制限しない。
func NewClassifier(completer llm.Completer, logger *slog.Logger, interval time.Duration) *Classifier {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Classifier{
		completer: completer,
		logger:    logger,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Classify は1記事を分類する。いかなる失敗もフォールバック結果として返す。
func (c *Classifier) Classify(ctx context.Context, a model.Article) Result {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fallback(ctxErr)
		}
		return Fallback(fmt.Errorf("rate limiter wait: %w", err))
	}

	reply, err := c.completer.Complete(ctx, "", BuildPrompt(a))
	if err != nil {
		return Fallback(err)
	}

	category, emotion, err := ParseResponse(reply)
	if err != nil {
		return Fallback(err)
	}
	return Result{Category: category, Emotion: emotion}
}

// ClassifyAll は全記事を入力順に独立して分類する。
// 戻り値の長さは常に入力と等しく、1記事の失敗が他の記事に影響することはない。
func (c *Classifier) ClassifyAll(ctx context.Context, articles []model.Article) []model.ClassifiedArticle {
	out := make([]model.ClassifiedArticle, len(articles))
	degraded := 0

	for i, a := range articles {
		res := c.Classify(ctx, a)
		out[i] = model.ClassifiedArticle{
			Article:  a,
			Category: res.Category,
			Emotion:  res.Emotion,
		}
		if res.Err != nil {
			degraded++
			out[i].FallbackReason = res.Reason()
			c.logger.Warn("記事の分類に失敗したためフォールバック値を適用しました",
				slog.Int("index", i),
				slog.String("title", a.Title),
				slog.String("reason", res.Reason()),
				slog.String("error", res.Err.Error()),
			)
		}
	}

	c.logger.Info("記事の分類が完了しました",
		slog.Int("article_count", len(articles)),
		slog.Int("fallback_count", degraded),
	)
	return out
}

// BuildPrompt は記事のタイトルと説明文から分類用プロンプトを組み立てる。
func BuildPrompt(a model.Article) string {
	cats := model.KnownCategories()
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = string(cat)
	}

	var b strings.Builder
	b.WriteString("Analyze this news article and provide:\n")
	b.WriteString("1. The most relevant category from this list: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n2. The dominant emotional tone (e.g., neutral, positive, negative, urgent, serious, hopeful)\n\n")
	b.WriteString("Title: " + a.Title + "\n")
	b.WriteString("Description: " + a.Description + "\n\n")
	b.WriteString("Respond in this exact format:\nCategory: [category]\nEmotion: [emotion]")
	return b.String()
}

// ParseResponse は "Category: x" / "Emotion: y" 形式の応答を解釈する。
// キーは大文字小文字を区別しない。語彙にない分類はotherに置き換える。
// どちらかの行が欠けている場合はErrMalformedResponseを返す。
func ParseResponse(reply string) (model.Category, string, error) {
	var category, emotion string
	var hasCategory, hasEmotion bool

	for _, line := range strings.Split(reply, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = trimDecoration(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "category":
			if !hasCategory && value != "" {
				category, hasCategory = value, true
			}
		case "emotion":
			if !hasEmotion && value != "" {
				emotion, hasEmotion = strings.ToLower(value), true
			}
		}
	}

	if !hasCategory || !hasEmotion {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedResponse, reply)
	}
	return model.ParseCategory(category), emotion, nil
}

// trimDecoration はモデルが付けがちな角括弧・強調記号・末尾のピリオドを除く。
func trimDecoration(v string) string {
	return strings.Trim(strings.TrimSpace(v), " []*.\"'")
}
