package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, scraper, schedule, system
	Action   string // ユーザー向け対処方法
	Field    string // バリデーション失敗時の対象フィールド
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsValidation はバリデーションエラーかどうかを返す。
func (e *APIError) IsValidation() bool {
	return e.Category == "validation"
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeInvalidScheduleSettings = "INVALID_SCHEDULE_SETTINGS"
	ErrCodeNoRegions               = "NO_REGIONS"
	ErrCodeNoValidRegions          = "NO_VALID_REGIONS"
	ErrCodeSettingsCorrupted       = "SETTINGS_CORRUPTED"
	ErrCodeInternal                = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidScheduleFieldError はスケジュール設定の範囲外エラーを生成する。
func NewInvalidScheduleFieldError(field string, value, min, max int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidScheduleSettings,
		Message:  fmt.Sprintf("%s の値が範囲外です: %d（%d〜%d）", field, value, min, max),
		Category: "validation",
		Action:   fmt.Sprintf("%s には %d から %d の値を指定してください。", field, min, max),
		Field:    field,
	}
}

// NewNoRegionsError は地域が1件も指定されていない場合のエラーを生成する。
func NewNoRegionsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoRegions,
		Message:  "収集対象の地域が指定されていません。",
		Category: "validation",
		Action:   "少なくとも1つの地域を選択してください。",
	}
}

// NewNoValidRegionsError は未知の地域IDが含まれている場合のエラーを生成する。
func NewNoValidRegionsError(unknown []string) *APIError {
	return &APIError{
		Code:     ErrCodeNoValidRegions,
		Message:  fmt.Sprintf("有効な地域がありません: %s", strings.Join(unknown, ", ")),
		Category: "validation",
		Action:   "地域一覧に存在するIDを指定してください。",
	}
}

// NewSettingsCorruptedError は保存済み設定のJSONが解析できない場合のエラーを生成する。
func NewSettingsCorruptedError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeSettingsCorrupted,
		Message:  fmt.Sprintf("保存済みの設定を読み込めませんでした: %s", key),
		Category: "system",
		Action:   "設定を保存し直してください。",
	}
}
