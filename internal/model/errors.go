// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// CodeはHTTPステータスへのマッピングに使う内部分類で、
// MessageとDetailがそのままJSONレスポンスの error / message フィールドになる。
type APIError struct {
	Code    string // エラーコード
	Message string // クライアント向け概要
	Detail  string // 追加説明（省略可。本番では外部サービス由来の詳細を含めない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeTokenMissing   = "TOKEN_MISSING"
	ErrCodeTokenExpired   = "TOKEN_EXPIRED"
	ErrCodeMemberNotFound = "MEMBER_NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_FAILED"
	ErrCodeUpstream       = "UPSTREAM_FAILURE"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewUnauthorizedError はセッションにユーザーが存在しない場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "認証が必要です。",
		Detail:  "ログインしてください。",
	}
}

// NewTokenMissingError はセッションにGoogleトークンが存在しない場合のエラーを生成する。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:    ErrCodeTokenMissing,
		Message: "Googleトークンがありません。",
		Detail:  "再認証してください。",
	}
}

// NewTokenExpiredError はGoogleがトークンを拒否した場合のエラーを生成する。
// このエラーの報告と同時にセッションのトークンはクリアされる。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:    ErrCodeTokenExpired,
		Message: "Googleトークンの有効期限が切れています。",
		Detail:  "再認証してください。",
	}
}

// NewMemberNotFoundError はメンバーが見つからない場合のエラーを生成する。
func NewMemberNotFoundError(memberID int64) *APIError {
	return &APIError{
		Code:    ErrCodeMemberNotFound,
		Message: "指定されたメンバーが見つかりません。",
		Detail:  fmt.Sprintf("メンバーID: %d", memberID),
	}
}

// NewValidationError は必須フィールドが欠落している場合のエラーを生成する。
func NewValidationError(detail string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: "リクエストが不正です。",
		Detail:  detail,
	}
}

// NewUpstreamError はGoogle Calendar API呼び出しがトークン以外の理由で
// 失敗した場合のエラーを生成する。
func NewUpstreamError() *APIError {
	return &APIError{
		Code:    ErrCodeUpstream,
		Message: "空き時間の取得に失敗しました。",
		Detail:  "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "内部エラーが発生しました。",
		Detail:  "しばらく待ってから再度お試しください。",
	}
}
