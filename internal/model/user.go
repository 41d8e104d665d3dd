// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashは認証サブシステムのみが参照し、APIレスポンスには含めない。
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	Email          string
	Birthday       *time.Time
	FavoriteMovies []string // movie IDの順序付きリスト。重複を許容する。
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserInput は登録・更新時にクライアントから受け取るユーザー情報。
// Passwordは平文で、保存前に必ずハッシュ化される。
type UserInput struct {
	Username string
	Password string
	Email    string
	Birthday string // YYYY-MM-DD。空文字列は未指定。
}
