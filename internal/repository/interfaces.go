// Package repository はデータ永続化のインターフェースを定義する。
// PostgreSQLとMongoDBの2つの実装を持ち、起動時にどちらか一方を選択する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/myflix/internal/model"
)

// ErrDuplicateUsername はユーザー名の一意制約に違反した場合のエラー。
var ErrDuplicateUsername = errors.New("username already exists")

// UserRepository はユーザーデータの永続化インターフェース。
// 取得系は見つからない場合に (nil, nil) を返す。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名の完全一致でユーザーを取得する。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// List は全ユーザーをユーザー名順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はusernameで特定したユーザーのプロフィールを上書きし、更新後のユーザーを返す。
	// お気に入りは変更しない。見つからない場合はnilを返す。
	Update(ctx context.Context, username string, user *model.User) (*model.User, error)

	// DeleteByUsername はユーザーを削除する。削除した場合はtrueを返す。
	DeleteByUsername(ctx context.Context, username string) (bool, error)

	// AddFavorite はお気に入りの末尾に映画IDを追加し、更新後のユーザーを返す。
	// 重複は許容する。ユーザーが見つからない場合はnilを返す。
	AddFavorite(ctx context.Context, username, movieID string) (*model.User, error)

	// RemoveFavorite はお気に入りから映画IDを全て取り除き、更新後のユーザーを返す。
	// ユーザーが見つからない場合はnilを返す。
	RemoveFavorite(ctx context.Context, username, movieID string) (*model.User, error)

	// PruneFavorites はカタログに存在しない映画を指すお気に入りを削除し、削除件数を返す。
	PruneFavorites(ctx context.Context) (int64, error)
}

// MovieRepository は映画カタログの永続化インターフェース。
// 取得系は見つからない場合に (nil, nil) を返す。
type MovieRepository interface {
	// List は全作品をタイトル順で返す。
	List(ctx context.Context) ([]*model.Movie, error)

	// FindByID は指定IDの作品を取得する。
	FindByID(ctx context.Context, id string) (*model.Movie, error)

	// FindByTitle はタイトルの完全一致で作品を取得する。
	FindByTitle(ctx context.Context, title string) (*model.Movie, error)

	// FindByGenreName はジャンル名に一致する最初の作品のジャンル情報を返す。
	FindByGenreName(ctx context.Context, name string) (*model.Genre, error)

	// FindByDirectorName は監督名に一致する最初の作品の監督情報を返す。
	FindByDirectorName(ctx context.Context, name string) (*model.Director, error)

	// Upsert はIDをキーに作品を作成または上書きする。
	Upsert(ctx context.Context, movie *model.Movie) error
}
