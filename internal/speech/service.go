package speech

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// 失敗段階（メトリクスのラベルにも使う）
const (
	StageTranslate = "translate"
	StageTTS       = "tts"
)

// TextTranslator はテキストを翻訳する。
type TextTranslator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// Synthesizer はテキストを音声に変換する。
type Synthesizer interface {
	Synthesize(ctx context.Context, text, langCode string) ([]byte, error)
}

// FailureRecorder は失敗を記録するメトリクス。
type FailureRecorder interface {
	RecordSpeechFailure(stage string)
}

// Service は翻訳してから音声合成する一連の処理を提供する。
type Service struct {
	translator  TextTranslator
	synthesizer Synthesizer
	logger      *slog.Logger
	metrics     FailureRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(translator TextTranslator, synthesizer Synthesizer, logger *slog.Logger, metrics FailureRecorder) *Service {
	return &Service{
		translator:  translator,
		synthesizer: synthesizer,
		logger:      logger,
		metrics:     metrics,
	}
}

// TranslateAudio はtextをlang（言語名）に翻訳し、その言語の音声（MP3）を返す。
func (s *Service) TranslateAudio(ctx context.Context, text, lang string) ([]byte, error) {
	start := time.Now()

	translated, err := s.translator.Translate(ctx, text, lang)
	if err != nil {
		s.fail(StageTranslate, lang, err)
		return nil, err
	}

	code := LanguageCode(lang)
	audio, err := s.synthesizer.Synthesize(ctx, translated, code)
	if err != nil {
		s.fail(StageTTS, lang, err)
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	s.logger.Info("翻訳音声を生成しました",
		slog.String("lang", lang),
		slog.String("lang_code", code),
		slog.Int("audio_bytes", len(audio)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return audio, nil
}

func (s *Service) fail(stage, lang string, err error) {
	s.logger.Error("翻訳音声の生成に失敗しました",
		slog.String("stage", stage),
		slog.String("lang", lang),
		slog.String("error", err.Error()),
	)
	if s.metrics != nil {
		s.metrics.RecordSpeechFailure(stage)
	}
}
