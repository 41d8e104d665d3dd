package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/myflix/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// selectUserSQL はお気に入りを追加順の配列として結合したユーザー取得クエリ。
const selectUserSQL = `SELECT u.id, u.username, u.password_hash, u.email, u.birthday, u.created_at, u.updated_at,
	ARRAY(SELECT f.movie_id FROM user_favorite_movies f WHERE f.user_id = u.id ORDER BY f.position)
	FROM users u`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var birthday sql.NullTime
	var favorites []string
	if err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Email, &birthday,
		&user.CreatedAt, &user.UpdatedAt, pq.Array(&favorites),
	); err != nil {
		return nil, err
	}
	if birthday.Valid {
		b := birthday.Time
		user.Birthday = &b
	}
	user.FavoriteMovies = favorites
	if user.FavoriteMovies == nil {
		user.FavoriteMovies = []string{}
	}
	return user, nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserSQL+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, "u.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := r.findOne(ctx, "u.username = $1", username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// List は全ユーザーをユーザー名順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUserSQL+" ORDER BY u.username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, email, birthday, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.PasswordHash, user.Email, nullableDate(user.Birthday),
		user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はusernameで特定したユーザーのプロフィールを上書きする。
func (r *PostgresUserRepo) Update(ctx context.Context, username string, user *model.User) (*model.User, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET username = $1, password_hash = $2, email = $3, birthday = $4, updated_at = $5
		 WHERE username = $6 RETURNING id`,
		user.Username, user.PasswordHash, user.Email, nullableDate(user.Birthday), user.UpdatedAt, username,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return r.FindByID(ctx, id)
}

// DeleteByUsername はユーザーを削除する。お気に入りはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// AddFavorite はお気に入りの末尾に映画IDを追加する。
func (r *PostgresUserRepo) AddFavorite(ctx context.Context, username, movieID string) (*model.User, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user_favorite_movies (user_id, movie_id)
		 SELECT id, $2 FROM users WHERE username = $1`,
		username, movieID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.FindByUsername(ctx, username)
}

// RemoveFavorite はお気に入りから映画IDを全て取り除く。
func (r *PostgresUserRepo) RemoveFavorite(ctx context.Context, username, movieID string) (*model.User, error) {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_favorite_movies
		 WHERE user_id = (SELECT id FROM users WHERE username = $1) AND movie_id = $2`,
		username, movieID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to remove favorite: %w", err)
	}

	return r.FindByUsername(ctx, username)
}

// PruneFavorites はカタログに存在しない映画を指すお気に入りを削除する。
func (r *PostgresUserRepo) PruneFavorites(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_favorite_movies f
		 WHERE NOT EXISTS (SELECT 1 FROM movies m WHERE m.id = f.movie_id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune favorites: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// nullableDate は日付のみを保持するDATE型カラム向けにポインタを変換する。
func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.DateOnly)
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
