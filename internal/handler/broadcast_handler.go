package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/newscast/internal/middleware"
	"github.com/hitoshi/newscast/internal/model"
	"github.com/hitoshi/newscast/internal/worker/scheduler"
)

// LatestBroadcastFinder は最新の放送原稿を取得する。
type LatestBroadcastFinder interface {
	Latest(ctx context.Context) (*model.Broadcast, error)
}

// RunTrigger はパイプラインの即時実行を要求する。
// 実行中の場合はscheduler.ErrRunInProgressを返す。
type RunTrigger interface {
	TriggerNow(ctx context.Context) error
}

// BroadcastHandler は放送原稿とパイプライン操作のHTTPハンドラー。
type BroadcastHandler struct {
	store   LatestBroadcastFinder
	trigger RunTrigger
	logger  *slog.Logger
}

// NewBroadcastHandler はBroadcastHandlerを生成する。
func NewBroadcastHandler(store LatestBroadcastFinder, trigger RunTrigger, logger *slog.Logger) *BroadcastHandler {
	return &BroadcastHandler{store: store, trigger: trigger, logger: logger}
}

// runAcceptedResponse はパイプライン実行受付のレスポンス。
type runAcceptedResponse struct {
	Status string `json:"status"`
}

// Latest は最新の放送原稿を返す。
// GET /api/broadcasts/latest
func (h *BroadcastHandler) Latest(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Latest(r.Context())
	if err != nil {
		h.logger.Error("最新の放送原稿の取得に失敗しました", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if b == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewBroadcastNotFoundError())
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// RunPipeline はパイプラインの即時実行を受け付ける。
// POST /api/pipeline/run
func (h *BroadcastHandler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	err := h.trigger.TriggerNow(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewRunInProgressError())
		return
	case err != nil:
		h.logger.Error("パイプラインの起動に失敗しました", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusAccepted, runAcceptedResponse{Status: "accepted"})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
