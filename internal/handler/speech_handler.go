package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/newscast/internal/middleware"
)

// 翻訳音声エンドポイントのエラーメッセージ
const msgMissingTranslateParams = "Missing 'text' or 'lang' parameter"

// AudioTranslator はテキストを翻訳して音声に変換するサービス。
type AudioTranslator interface {
	TranslateAudio(ctx context.Context, text, lang string) ([]byte, error)
}

// SpeechHandler は翻訳音声のHTTPハンドラー。
type SpeechHandler struct {
	service AudioTranslator
	logger  *slog.Logger
}

// NewSpeechHandler はSpeechHandlerを生成する。
func NewSpeechHandler(service AudioTranslator, logger *slog.Logger) *SpeechHandler {
	return &SpeechHandler{service: service, logger: logger}
}

// Translate はテキストを指定言語へ翻訳し、MP3を添付ファイルとして返す。
// GET /translate?text=xxx&lang=french
func (h *SpeechHandler) Translate(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	lang := r.URL.Query().Get("lang")
	if text == "" || lang == "" {
		middleware.WriteSimpleError(w, http.StatusBadRequest, msgMissingTranslateParams)
		return
	}

	audio, err := h.service.TranslateAudio(r.Context(), text, lang)
	if err != nil {
		h.logger.Error("翻訳音声リクエストの処理に失敗しました",
			slog.String("lang", lang),
			slog.String("error", err.Error()),
		)
		middleware.WriteSimpleError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="translated_audio.mp3"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
