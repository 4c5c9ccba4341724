package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, broadcast, pipeline, system
	Action   string // 利用者向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBroadcastNotFound = "BROADCAST_NOT_FOUND"
	ErrCodeRunInProgress     = "RUN_IN_PROGRESS"
)

// NewBroadcastNotFoundError は放送原稿が1件も存在しない場合のエラーを生成する。
func NewBroadcastNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBroadcastNotFound,
		Message:  "放送原稿がまだ生成されていません。",
		Category: "broadcast",
		Action:   "パイプラインの初回実行が完了するまでお待ちください。",
	}
}

// NewRunInProgressError はパイプライン実行中に再実行を要求された場合のエラーを生成する。
func NewRunInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeRunInProgress,
		Message:  "パイプラインは既に実行中です。",
		Category: "pipeline",
		Action:   "実行が完了してから再度お試しください。",
	}
}
