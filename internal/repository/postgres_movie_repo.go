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

const selectMovieSQL = `SELECT id, title, description, genre_name, genre_description,
	director_name, director_bio, director_birth, director_death, actors, image_path, featured
	FROM movies`

// PostgresMovieRepo はPostgreSQLを使用した映画カタログリポジトリ。
type PostgresMovieRepo struct {
	db *sql.DB
}

// NewPostgresMovieRepo はPostgresMovieRepoを生成する。
func NewPostgresMovieRepo(db *sql.DB) *PostgresMovieRepo {
	return &PostgresMovieRepo{db: db}
}

func scanMovie(row rowScanner) (*model.Movie, error) {
	m := &model.Movie{}
	var birth, death sql.NullTime
	var actors []string
	if err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Genre.Name, &m.Genre.Description,
		&m.Director.Name, &m.Director.Bio, &birth, &death,
		pq.Array(&actors), &m.ImagePath, &m.Featured,
	); err != nil {
		return nil, err
	}
	m.Director.Birth = timePtr(birth)
	m.Director.Death = timePtr(death)
	m.Actors = actors
	if m.Actors == nil {
		m.Actors = []string{}
	}
	return m, nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// List は全作品をタイトル順で返す。
func (r *PostgresMovieRepo) List(ctx context.Context) ([]*model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, selectMovieSQL+" ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	movies := []*model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movies: %w", err)
	}
	return movies, nil
}

func (r *PostgresMovieRepo) findOne(ctx context.Context, where string, arg any) (*model.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx, selectMovieSQL+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByID(ctx context.Context, id string) (*model.Movie, error) {
	m, err := r.findOne(ctx, "id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find movie by ID: %w", err)
	}
	return m, nil
}

// FindByTitle はタイトルで作品を取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByTitle(ctx context.Context, title string) (*model.Movie, error) {
	m, err := r.findOne(ctx, "title = $1", title)
	if err != nil {
		return nil, fmt.Errorf("failed to find movie by title: %w", err)
	}
	return m, nil
}

// FindByGenreName はジャンル情報を返す。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByGenreName(ctx context.Context, name string) (*model.Genre, error) {
	g := &model.Genre{}
	err := r.db.QueryRowContext(ctx,
		`SELECT genre_name, genre_description FROM movies WHERE genre_name = $1 ORDER BY title LIMIT 1`,
		name,
	).Scan(&g.Name, &g.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find genre: %w", err)
	}
	return g, nil
}

// FindByDirectorName は監督情報を返す。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByDirectorName(ctx context.Context, name string) (*model.Director, error) {
	d := &model.Director{}
	var birth, death sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT director_name, director_bio, director_birth, director_death
		 FROM movies WHERE director_name = $1 ORDER BY title LIMIT 1`,
		name,
	).Scan(&d.Name, &d.Bio, &birth, &death)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find director: %w", err)
	}
	d.Birth = timePtr(birth)
	d.Death = timePtr(death)
	return d, nil
}

// Upsert はIDをキーに作品を作成または上書きする。
func (r *PostgresMovieRepo) Upsert(ctx context.Context, m *model.Movie) error {
	actors := m.Actors
	if actors == nil {
		actors = []string{}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (id, title, description, genre_name, genre_description,
			director_name, director_bio, director_birth, director_death, actors, image_path, featured)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			genre_name = EXCLUDED.genre_name,
			genre_description = EXCLUDED.genre_description,
			director_name = EXCLUDED.director_name,
			director_bio = EXCLUDED.director_bio,
			director_birth = EXCLUDED.director_birth,
			director_death = EXCLUDED.director_death,
			actors = EXCLUDED.actors,
			image_path = EXCLUDED.image_path,
			featured = EXCLUDED.featured,
			updated_at = now()`,
		m.ID, m.Title, m.Description, m.Genre.Name, m.Genre.Description,
		m.Director.Name, m.Director.Bio, nullableDate(m.Director.Birth), nullableDate(m.Director.Death),
		pq.Array(actors), m.ImagePath, m.Featured,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert movie %q: %w", m.Title, err)
	}
	return nil
}

// compile-time interface check
var _ MovieRepository = (*PostgresMovieRepo)(nil)
