// Package catalog は映画カタログの参照と取り込みを提供する。
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hitoshi/myflix/internal/model"
	"github.com/hitoshi/myflix/internal/repository"
)

const (
	moviesKey      = "movies"
	titlePrefix    = "title:"
	genrePrefix    = "genre:"
	directorPrefix = "director:"
)

// Service は映画カタログの参照サービス。
// タイトル・ジャンル・監督の参照結果をTTL付きLRUキャッシュに保持する。
// キャッシュにはカタログ情報のみを置き、ユーザー情報は置かない。
type Service struct {
	movies repository.MovieRepository
	cache  *expirable.LRU[string, any]
}

// NewService はServiceを生成する。
// cacheSizeが0以下の場合はキャッシュを使用しない。
func NewService(movies repository.MovieRepository, cacheSize int, ttl time.Duration) *Service {
	s := &Service{movies: movies}
	if cacheSize > 0 {
		s.cache = expirable.NewLRU[string, any](cacheSize, nil, ttl)
	}
	return s
}

// ListMovies は全作品を返す。
func (s *Service) ListMovies(ctx context.Context) ([]*model.Movie, error) {
	movies, err := cached(s, moviesKey, func() ([]*model.Movie, error) {
		return s.movies.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("映画一覧の取得に失敗しました: %w", err)
	}
	return movies, nil
}

// GetMovie はタイトルで作品を返す。見つからない場合はMOVIE_NOT_FOUNDを返す。
func (s *Service) GetMovie(ctx context.Context, title string) (*model.Movie, error) {
	movie, err := cached(s, titlePrefix+title, func() (*model.Movie, error) {
		return s.movies.FindByTitle(ctx, title)
	})
	if err != nil {
		return nil, fmt.Errorf("映画の取得に失敗しました: %w", err)
	}
	if movie == nil {
		return nil, model.NewMovieNotFoundError(title)
	}
	return movie, nil
}

// GetGenre はジャンル名でジャンル情報を返す。見つからない場合はGENRE_NOT_FOUNDを返す。
func (s *Service) GetGenre(ctx context.Context, name string) (*model.Genre, error) {
	genre, err := cached(s, genrePrefix+name, func() (*model.Genre, error) {
		return s.movies.FindByGenreName(ctx, name)
	})
	if err != nil {
		return nil, fmt.Errorf("ジャンルの取得に失敗しました: %w", err)
	}
	if genre == nil {
		return nil, model.NewGenreNotFoundError(name)
	}
	return genre, nil
}

// GetDirector は監督名で監督情報を返す。見つからない場合はDIRECTOR_NOT_FOUNDを返す。
func (s *Service) GetDirector(ctx context.Context, name string) (*model.Director, error) {
	director, err := cached(s, directorPrefix+name, func() (*model.Director, error) {
		return s.movies.FindByDirectorName(ctx, name)
	})
	if err != nil {
		return nil, fmt.Errorf("監督の取得に失敗しました: %w", err)
	}
	if director == nil {
		return nil, model.NewDirectorNotFoundError(name)
	}
	return director, nil
}

// Invalidate はキャッシュを全て破棄する。カタログの取り込み後に呼び出す。
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// cached はキャッシュにあればそれを返し、なければloadの結果を格納して返す。
// 見つからなかった結果（nil）とエラーはキャッシュしない。
func cached[T any](s *Service, key string, load func() (T, error)) (T, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if s.cache != nil && !isNil(v) {
		s.cache.Add(key, v)
	}
	return v, nil
}

func isNil(v any) bool {
	switch x := v.(type) {
	case *model.Movie:
		return x == nil
	case *model.Genre:
		return x == nil
	case *model.Director:
		return x == nil
	case []*model.Movie:
		return x == nil
	default:
		return v == nil
	}
}
