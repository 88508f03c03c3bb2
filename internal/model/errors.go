// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, donation, request, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation              = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeInvalidAdminCredentials = "INVALID_ADMIN_CREDENTIALS"
	ErrCodeEmailAlreadyRegistered  = "EMAIL_ALREADY_REGISTERED"
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeDonationNotFound        = "DONATION_NOT_FOUND"
	ErrCodeDonationUnavailable     = "DONATION_UNAVAILABLE"
	ErrCodeRequestNotFound         = "REQUEST_NOT_FOUND"
	ErrCodeRequestAlreadyCompleted = "REQUEST_ALREADY_COMPLETED"
	ErrCodeConfirmationRequired    = "CONFIRMATION_REQUIRED"
	ErrCodeConcurrentUpdate        = "CONCURRENT_UPDATE"
)

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email, password, or role. Please check your credentials and try again.",
		Category: "auth",
		Action:   "メールアドレス、パスワード、ロールを確認してください。",
	}
}

// NewInvalidAdminCredentialsError は管理者ログイン失敗エラーを生成する。
func NewInvalidAdminCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAdminCredentials,
		Message:  "Invalid admin credentials. Admin access is restricted.",
		Category: "auth",
		Action:   "管理者アカウントの認証情報を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError はロール不一致などのアクセス拒否エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "適切なロールでログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewDonationNotFoundError は寄付が見つからない場合のエラーを生成する。
// 他の寄付者の寄付を指定した場合も同じエラーを返す。
func NewDonationNotFoundError(donationID string) *APIError {
	return &APIError{
		Code:     ErrCodeDonationNotFound,
		Message:  fmt.Sprintf("指定された寄付が見つかりません: %s", donationID),
		Category: "donation",
		Action:   "寄付IDを確認してください。",
	}
}

// NewDonationUnavailableError は既に確保済みの寄付をリクエストした場合のエラーを生成する。
func NewDonationUnavailableError(donationID string) *APIError {
	return &APIError{
		Code:     ErrCodeDonationUnavailable,
		Message:  fmt.Sprintf("この寄付は既にリクエストされています: %s", donationID),
		Category: "donation",
		Action:   "一覧を更新して、他の寄付を選択してください。",
	}
}

// NewRequestNotFoundError はリクエストが見つからない場合のエラーを生成する。
func NewRequestNotFoundError(requestID string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestNotFound,
		Message:  fmt.Sprintf("指定されたリクエストが見つかりません: %s", requestID),
		Category: "request",
		Action:   "リクエストIDを確認してください。",
	}
}

// NewRequestAlreadyCompletedError は完了済みリクエストを再度完了しようとした場合のエラーを生成する。
func NewRequestAlreadyCompletedError(requestID string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestAlreadyCompleted,
		Message:  fmt.Sprintf("このリクエストは既に完了しています: %s", requestID),
		Category: "request",
		Action:   "一覧を更新してください。",
	}
}

// NewConfirmationRequiredError は破壊的操作に確認が付与されていない場合のエラーを生成する。
func NewConfirmationRequiredError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeConfirmationRequired,
		Message:  fmt.Sprintf("この操作には確認が必要です: %s", operation),
		Category: "validation",
		Action:   "X-Confirm: true ヘッダーを付与して再度実行してください。",
	}
}

// NewConcurrentUpdateError は楽観的排他の再試行が尽きた場合のエラーを生成する。
func NewConcurrentUpdateError() *APIError {
	return &APIError{
		Code:     ErrCodeConcurrentUpdate,
		Message:  "他の操作と競合したため更新できませんでした。",
		Category: "system",
		Action:   "一覧を更新してから再度お試しください。",
	}
}

// ValidationError はフィールド単位の入力検証エラーを表す。
// Fieldsのキーはリクエストボディのフィールド名。
// Codeが空の場合はVALIDATION_FAILEDとして扱う。
type ValidationError struct {
	Code   string
	Fields map[string]string
}

// ErrorCode はエラーコードを返す。
func (e *ValidationError) ErrorCode() string {
	if e.Code == "" {
		return ErrCodeValidation
	}
	return e.Code
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("[%s] %s", e.ErrorCode(), strings.Join(parts, "; "))
}

// NewValidationError は単一フィールドの検証エラーを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// NewEmailAlreadyRegisteredError は登録済みメールアドレスでの登録エラーを生成する。
// フォーム上はemailフィールドのエラーとして表示される。
func NewEmailAlreadyRegisteredError() *ValidationError {
	return &ValidationError{
		Code:   ErrCodeEmailAlreadyRegistered,
		Fields: map[string]string{"email": "Email already registered"},
	}
}

// FieldErrors は検証エラーを蓄積するためのヘルパー。
type FieldErrors map[string]string

// Add はフィールドが未登録の場合のみエラーを追加する。
// 同じフィールドでは最初の違反だけを報告する。
func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

// Err はエラーが1件以上あればValidationErrorを返し、なければnilを返す。
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(f)}
}
