// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// 認証エラー。いずれもErrUnauthenticatedをラップしており、
// errors.Is(err, ErrUnauthenticated) で一括判定できる。
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = fmt.Errorf("invalid token: %w", ErrUnauthenticated)
	ErrSessionNotFound = fmt.Errorf("session not found: %w", ErrUnauthenticated)
	ErrSessionExpired  = fmt.Errorf("session expired: %w", ErrUnauthenticated)
)

// 配信エラー。
var (
	// ErrDeliveryPersistence は通知レコードの永続化に失敗したことを示す。
	// その配信のみ失敗扱いとし、次回のスケジューラ実行で再試行される。
	ErrDeliveryPersistence = errors.New("delivery persistence failure")
	// ErrTransport はメール送信に失敗したことを示す。常に致命的ではない。
	ErrTransport = errors.New("transport failure")
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, notification, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInvalidToken         = "INVALID_TOKEN"
	ErrCodeSessionExpired       = "SESSION_EXPIRED"
	ErrCodeSessionNotFound      = "SESSION_NOT_FOUND"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeUserExists           = "USER_EXISTS"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeReminderNotFound     = "REMINDER_NOT_FOUND"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeMotivationNotFound   = "MOTIVATION_NOT_FOUND"
	ErrCodeInvalidMood          = "INVALID_MOOD"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewAuthError は認証エラーをユーザー向けAPIErrorに変換する。
// ErrUnauthenticated系以外のエラーにはnilを返す。
func NewAuthError(err error) *APIError {
	switch {
	case errors.Is(err, ErrSessionExpired):
		return &APIError{
			Code:     ErrCodeSessionExpired,
			Message:  "セッションの有効期限が切れました。",
			Category: "auth",
			Action:   "再度ログインしてください。",
		}
	case errors.Is(err, ErrSessionNotFound):
		return &APIError{
			Code:     ErrCodeSessionNotFound,
			Message:  "セッションが無効です。",
			Category: "auth",
			Action:   "再度ログインしてください。",
		}
	case errors.Is(err, ErrInvalidToken):
		return &APIError{
			Code:     ErrCodeInvalidToken,
			Message:  "トークンが無効です。",
			Category: "auth",
			Action:   "再度ログインしてください。",
		}
	case errors.Is(err, ErrUnauthenticated):
		return NewUnauthorizedError()
	default:
		return nil
	}
}

// NewUnauthorizedError は認証情報が無い場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードの誤りを示すエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewUserExistsError は既に登録済みのメールアドレスで登録しようとした場合のエラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewReminderNotFoundError はリマインダーが見つからない場合のエラーを生成する。
func NewReminderNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeReminderNotFound,
		Message:  fmt.Sprintf("指定されたリマインダーが見つかりません: %s", id),
		Category: "notification",
		Action:   "リマインダーIDを確認してください。",
	}
}

// NewNotificationNotFoundError は通知が見つからない場合のエラーを生成する。
func NewNotificationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", id),
		Category: "notification",
		Action:   "通知IDを確認してください。",
	}
}

// NewMotivationNotFoundError は気分カテゴリに該当するメッセージが無い場合のエラーを生成する。
func NewMotivationNotFoundError(moodType MoodType) *APIError {
	return &APIError{
		Code:     ErrCodeMotivationNotFound,
		Message:  fmt.Sprintf("このカテゴリのメッセージはまだ登録されていません: %s", moodType),
		Category: "notification",
		Action:   "メッセージを登録するか、シードを実行してください。",
	}
}

// NewInvalidMoodError は不正な気分指定のエラーを生成する。
func NewInvalidMoodError(mood string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMood,
		Message:  fmt.Sprintf("無効な気分です: %s", mood),
		Category: "validation",
		Action:   "happy, sad, anxious, calm, excited, angry, neutral, positive, negative のいずれかを指定してください。",
	}
}

// NewRateLimitedError はリクエスト数が上限を超えた場合のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInvalidRequestError はリクエストボディを解析できない場合のAPIErrorを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInternalError は内部エラーのAPIErrorを生成する。詳細は含めない。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
