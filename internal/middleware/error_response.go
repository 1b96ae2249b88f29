package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/roomsched/internal/model"
)

// ErrorResponseBody は予約APIのエラーレスポンス。
// codeはCONFLICTやUNAUTHENTICATEDなどの機械可読なコードで、クライアントはこれで分岐する。
// categoryはauth / schedule / validation / system のいずれか。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse はapiErrをstatusCodeのJSONエラーとして書き込む。
// 認証ゲート（UNAUTHENTICATED）、レート制限（RATE_LIMIT_EXCEEDED）、各ハンドラーが共通で使う。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError はINTERNAL_ERRORを500で書き込む。
// パニックや想定外のエラーの詳細はログにだけ残し、レスポンスには含めない。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
