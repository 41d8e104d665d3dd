package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hitoshi/myflix/internal/model"
	"github.com/hitoshi/myflix/internal/repository"
	"github.com/hitoshi/myflix/internal/security"
)

// seedFile はカタログ取り込み用YAMLファイルの形式。
//
//	movies:
//	  - title: Silence of the Lambs
//	    genre: {name: Thriller, description: ...}
//	    director: {name: Jonathan Demme, birth: "1944-02-22"}
//	    actors: [Jodie Foster, Anthony Hopkins]
type seedFile struct {
	Movies []seedMovie `yaml:"movies"`
}

type seedMovie struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Genre       seedGenre    `yaml:"genre"`
	Director    seedDirector `yaml:"director"`
	Actors      []string     `yaml:"actors"`
	ImagePath   string       `yaml:"imagePath"`
	Featured    bool         `yaml:"featured"`
}

type seedGenre struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type seedDirector struct {
	Name  string `yaml:"name"`
	Bio   string `yaml:"bio"`
	Birth string `yaml:"birth"`
	Death string `yaml:"death"`
}

func (m seedMovie) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&m.Genre, validation.By(func(interface{}) error {
			return validation.Validate(m.Genre.Name, validation.Required)
		})),
		validation.Field(&m.Director, validation.By(func(interface{}) error {
			return validation.ValidateStruct(&m.Director,
				validation.Field(&m.Director.Name, validation.Required),
				validation.Field(&m.Director.Birth, validation.Date(time.DateOnly)),
				validation.Field(&m.Director.Death, validation.Date(time.DateOnly)),
			)
		})),
	)
}

// CacheInvalidator は取り込み完了後に破棄するカタログキャッシュ。
type CacheInvalidator interface {
	Invalidate()
}

// Importer はYAMLファイルから映画カタログを取り込む。
type Importer struct {
	movies      repository.MovieRepository
	sanitizer   security.TextSanitizer
	invalidator CacheInvalidator
}

// NewImporter はImporterを生成する。
// invalidatorがnilの場合、取り込み後のキャッシュ破棄は行わない。
func NewImporter(movies repository.MovieRepository, sanitizer security.TextSanitizer, invalidator CacheInvalidator) *Importer {
	return &Importer{movies: movies, sanitizer: sanitizer, invalidator: invalidator}
}

// Import はYAMLを読み込み、全作品をUpsertして件数を返す。
// 1件でも検証に失敗した場合は何も書き込まずにエラーを返す。
// IDが省略された作品は同じタイトルの既存作品のIDを引き継ぎ、なければ新しいIDを割り当てる。
func (i *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("カタログファイルの解析に失敗しました: %w", err)
	}

	movies := make([]*model.Movie, 0, len(file.Movies))
	for idx, sm := range file.Movies {
		if err := sm.Validate(); err != nil {
			return 0, fmt.Errorf("movies[%d] (%q) が不正です: %w", idx, sm.Title, err)
		}
		m := i.toModel(sm)
		if m.Title == "" {
			return 0, fmt.Errorf("movies[%d] のタイトルがサニタイズ後に空になりました", idx)
		}
		movies = append(movies, m)
	}

	for _, m := range movies {
		if m.ID == "" {
			id, err := i.resolveID(ctx, m.Title)
			if err != nil {
				return 0, err
			}
			m.ID = id
		}
		if err := i.movies.Upsert(ctx, m); err != nil {
			return 0, fmt.Errorf("映画の保存に失敗しました: %w", err)
		}
	}

	if i.invalidator != nil && len(movies) > 0 {
		i.invalidator.Invalidate()
	}

	slog.Info("catalog imported", slog.Int("movies", len(movies)))
	return len(movies), nil
}

func (i *Importer) resolveID(ctx context.Context, title string) (string, error) {
	existing, err := i.movies.FindByTitle(ctx, title)
	if err != nil {
		return "", fmt.Errorf("既存の映画の取得に失敗しました: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}
	return uuid.NewString(), nil
}

func (i *Importer) toModel(sm seedMovie) *model.Movie {
	actors := make([]string, 0, len(sm.Actors))
	for _, a := range sm.Actors {
		if clean := i.sanitizer.Sanitize(a); clean != "" {
			actors = append(actors, clean)
		}
	}

	return &model.Movie{
		ID:          strings.TrimSpace(sm.ID),
		Title:       i.sanitizer.Sanitize(sm.Title),
		Description: i.sanitizer.Sanitize(sm.Description),
		Genre: model.Genre{
			Name:        i.sanitizer.Sanitize(sm.Genre.Name),
			Description: i.sanitizer.Sanitize(sm.Genre.Description),
		},
		Director: model.Director{
			Name:  i.sanitizer.Sanitize(sm.Director.Name),
			Bio:   i.sanitizer.Sanitize(sm.Director.Bio),
			Birth: parseDate(sm.Director.Birth),
			Death: parseDate(sm.Director.Death),
		},
		Actors:    actors,
		ImagePath: strings.TrimSpace(sm.ImagePath),
		Featured:  sm.Featured,
	}
}

// parseDate は検証済みのYYYY-MM-DD文字列をパースする。空文字列はnilを返す。
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
