// Package user はユーザーアカウント管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/hitoshi/myflix/internal/model"
	"github.com/hitoshi/myflix/internal/repository"
)

// minUsernameLength はユーザー名の最小文字数。
const minUsernameLength = 5

// maxPasswordBytes はbcryptが扱える平文の最大バイト数。
const maxPasswordBytes = 72

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
}

// MovieFinder はお気に入り追加時に映画の存在を確認するためのインターフェース。
type MovieFinder interface {
	FindByID(ctx context.Context, id string) (*model.Movie, error)
}

// Service はユーザーアカウント管理のサービス層。
// 登録・更新・削除・お気に入り操作のビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	movies MovieFinder
	hasher PasswordHasher
	now    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, movies MovieFinder, hasher PasswordHasher) *Service {
	return &Service{
		users:  users,
		movies: movies,
		hasher: hasher,
		now:    time.Now,
	}
}

// Register は新規ユーザーを登録する。
// 入力検証に失敗した場合はVALIDATION_FAILED、ユーザー名が使用済みの場合はUSER_ALREADY_EXISTSを返す。
func (s *Service) Register(ctx context.Context, in model.UserInput) (*model.User, error) {
	birthday, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserAlreadyExistsError(in.Username)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:             uuid.NewString(),
		Username:       in.Username,
		PasswordHash:   hash,
		Email:          in.Email,
		Birthday:       birthday,
		FavoriteMovies: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// 存在確認と作成の間に同名ユーザーが作られた場合
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, model.NewUserAlreadyExistsError(in.Username)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Update はユーザー情報を上書きする。本人のみ更新できる。
// パスワードは再ハッシュ化して保存する。
func (s *Service) Update(ctx context.Context, actor *model.User, username string, in model.UserInput) (*model.User, error) {
	if err := requireOwner(actor, username); err != nil {
		return nil, err
	}

	birthday, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	if in.Username != username {
		taken, err := s.users.FindByUsername(ctx, in.Username)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
		}
		if taken != nil {
			return nil, model.NewUserAlreadyExistsError(in.Username)
		}
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	updated, err := s.users.Update(ctx, username, &model.User{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		Birthday:     birthday,
		UpdatedAt:    s.now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicateUsername) {
		return nil, model.NewUserAlreadyExistsError(in.Username)
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError(username)
	}

	slog.Info("user updated",
		slog.String("user_id", updated.ID),
		slog.String("username", updated.Username),
	)

	return updated, nil
}

// Delete はユーザーを削除する。本人のみ削除できる。
// 削除後、そのユーザー名を主体とする発行済みトークンは検証時に解決できなくなる。
func (s *Service) Delete(ctx context.Context, actor *model.User, username string) error {
	if err := requireOwner(actor, username); err != nil {
		return err
	}

	deleted, err := s.users.DeleteByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewUserNotFoundError(username)
	}

	slog.Info("user deleted", slog.String("username", username))
	return nil
}

// List は全ユーザーを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Get はユーザー名でユーザーを取得する。
func (s *Service) Get(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return user, nil
}

// AddFavorite はお気に入りに映画を追加する。本人のみ操作できる。
// カタログに存在しない映画IDはMOVIE_NOT_FOUNDとなる。
func (s *Service) AddFavorite(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error) {
	if err := requireOwner(actor, username); err != nil {
		return nil, err
	}

	movie, err := s.movies.FindByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError(movieID)
	}

	user, err := s.users.AddFavorite(ctx, username, movieID)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return user, nil
}

// RemoveFavorite はお気に入りから映画を取り除く。本人のみ操作できる。
// 同じ映画が複数回登録されている場合は全て取り除く。
func (s *Service) RemoveFavorite(ctx context.Context, actor *model.User, username, movieID string) (*model.User, error) {
	if err := requireOwner(actor, username); err != nil {
		return nil, err
	}

	user, err := s.users.RemoveFavorite(ctx, username, movieID)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return user, nil
}

// requireOwner は操作者がusernameのユーザー本人であることを確認する。
func requireOwner(actor *model.User, username string) error {
	if actor == nil {
		return model.NewUnauthorizedError()
	}
	if actor.Username != username {
		return model.NewForbiddenError()
	}
	return nil
}

// validateInput は登録・更新の入力を検証し、誕生日をパースして返す。
func validateInput(in model.UserInput) (*time.Time, error) {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Username,
			validation.Required,
			validation.Length(minUsernameLength, 0),
			is.Alphanumeric,
		),
		validation.Field(&in.Password,
			validation.Required,
			validation.By(maxBytes(maxPasswordBytes)),
		),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Birthday, validation.Date(time.DateOnly)),
	)
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for field, ferr := range verrs {
				details[field] = ferr.Error()
			}
			return nil, model.NewValidationError(details)
		}
		return nil, fmt.Errorf("入力検証に失敗しました: %w", err)
	}

	if in.Birthday == "" {
		return nil, nil
	}
	b, err := time.ParseInLocation(time.DateOnly, in.Birthday, time.UTC)
	if err != nil {
		return nil, model.NewValidationError(map[string]string{"Birthday": err.Error()})
	}
	return &b, nil
}

// maxBytes は文字列のバイト長の上限を検証するルールを返す。
func maxBytes(limit int) func(value interface{}) error {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(s) > limit {
			return fmt.Errorf("must be no more than %d bytes", limit)
		}
		return nil
	}
}
