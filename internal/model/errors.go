// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, user, system
	Action   string // ユーザー向け対処方法
	Details  map[string]string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeLoginFailed        = "LOGIN_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrCodeMovieNotFound      = "MOVIE_NOT_FOUND"
	ErrCodeGenreNotFound      = "GENRE_NOT_FOUND"
	ErrCodeDirectorNotFound   = "DIRECTOR_NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "The request body could not be parsed.",
		Category: "validation",
		Action:   "Send a well-formed JSON body.",
	}
}

// NewValidationError は入力検証エラーを生成する。
// detailsにはフィールド名ごとのエラー内容を格納する。
func NewValidationError(details map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "One or more fields are invalid.",
		Category: "validation",
		Action:   "Fix the listed fields and retry.",
		Details:  details,
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// ユーザー名の存在有無を推測させないため、原因に関わらず同一のメッセージを返す。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "Something is not right: incorrect username or password.",
		Category: "auth",
		Action:   "Check your credentials and try again.",
	}
}

// NewUnauthorizedError は認証失敗エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication is required.",
		Category: "auth",
		Action:   "Log in and send the token as 'Authorization: Bearer <token>'.",
	}
}

// NewForbiddenError は他ユーザーのリソースを操作しようとした場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You may only modify your own account.",
		Category: "auth",
		Action:   "Log in as the account owner.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("%s was not found.", username),
		Category: "user",
		Action:   "Check the username.",
	}
}

// NewUserAlreadyExistsError はユーザー名が既に使用されている場合のエラーを生成する。
func NewUserAlreadyExistsError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  fmt.Sprintf("%s already exists.", username),
		Category: "user",
		Action:   "Choose a different username.",
	}
}

// NewMovieNotFoundError は映画が見つからない場合のエラーを生成する。
func NewMovieNotFoundError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeMovieNotFound,
		Message:  fmt.Sprintf("Movie not found: %s", key),
		Category: "catalog",
		Action:   "Check the movie title or ID.",
	}
}

// NewGenreNotFoundError はジャンルが見つからない場合のエラーを生成する。
func NewGenreNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeGenreNotFound,
		Message:  fmt.Sprintf("Genre not found: %s", name),
		Category: "catalog",
		Action:   "Check the genre name.",
	}
}

// NewDirectorNotFoundError は監督が見つからない場合のエラーを生成する。
func NewDirectorNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDirectorNotFound,
		Message:  fmt.Sprintf("Director not found: %s", name),
		Category: "catalog",
		Action:   "Check the director name.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}

// NewServiceUnavailableError はデータストアに接続できない場合のエラーを生成する。
func NewServiceUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  "The data store is unavailable.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
