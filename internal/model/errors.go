// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, schedule, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeRoomNotFound        = "ROOM_NOT_FOUND"
	ErrCodeInvalidRange        = "INVALID_RANGE"
	ErrCodeMalformedInput      = "MALFORMED_INPUT"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeAppointmentNotFound = "APPOINTMENT_NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ErrorCode はerrのチェーンからAPIErrorを探してエラーコードを返す。
// APIErrorを含まない場合は空文字を返す。
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// NewUnauthenticatedError は認証トークンが無い、または解決できない場合のエラーを生成する。
func NewUnauthenticatedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  fmt.Sprintf("認証が必要です: %s", reason),
		Category: "auth",
		Action:   "ログインして取得したトークンを Authorization ヘッダーに指定してください。",
	}
}

// NewInvalidCredentialsError はユーザー名またはパスワードが一致しない場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewRoomNotFoundError は会議室が存在しない場合のエラーを生成する。
func NewRoomNotFoundError(roomID string) *APIError {
	return &APIError{
		Code:     ErrCodeRoomNotFound,
		Message:  fmt.Sprintf("指定された会議室が見つかりません: %s", roomID),
		Category: "schedule",
		Action:   "会議室一覧から会議室IDを確認してください。",
	}
}

// NewInvalidRangeError は開始時刻が終了時刻以降の場合のエラーを生成する。
func NewInvalidRangeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRange,
		Message:  "開始時刻は終了時刻より前である必要があります。",
		Category: "validation",
		Action:   "予約の開始時刻と終了時刻を確認してください。",
	}
}

// NewMalformedInputError はリクエストの形式が不正な場合のエラーを生成する。
func NewMalformedInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedInput,
		Message:  fmt.Sprintf("リクエストの形式が不正です: %s", reason),
		Category: "validation",
		Action:   "時刻は ISO-8601 形式（例: 2024-01-01T09:00:00Z）で指定してください。",
	}
}

// NewConflictError は既存の予約と時間帯が重なる場合のエラーを生成する。
func NewConflictError(roomID string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("指定された時間帯は既に予約されています: %s", roomID),
		Category: "schedule",
		Action:   "別の時間帯または別の会議室を選択してください。",
	}
}

// NewAppointmentNotFoundError は予約が存在しない場合のエラーを生成する。
func NewAppointmentNotFoundError(appointmentID string) *APIError {
	return &APIError{
		Code:     ErrCodeAppointmentNotFound,
		Message:  fmt.Sprintf("指定された予約が見つかりません: %s", appointmentID),
		Category: "schedule",
		Action:   "予約一覧から予約IDを確認してください。",
	}
}

// NewForbiddenError は予約の作成者以外が取消を試みた場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この予約を取り消す権限がありません。",
		Category: "schedule",
		Action:   "自分が作成した予約のみ取り消すことができます。",
	}
}

// NewRateLimitExceededError はレート制限を超過した場合のエラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-After ヘッダーの秒数だけ待ってから再度お試しください。",
	}
}
