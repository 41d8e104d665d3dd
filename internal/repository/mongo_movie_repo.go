package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/myflix/internal/model"
)

type mongoGenre struct {
	Name        string `bson:"Name"`
	Description string `bson:"Description"`
}

type mongoDirector struct {
	Name  string     `bson:"Name"`
	Bio   string     `bson:"Bio"`
	Birth *time.Time `bson:"Birth,omitempty"`
	Death *time.Time `bson:"Death,omitempty"`
}

// mongoMovie はmoviesコレクションのドキュメント形式。
type mongoMovie struct {
	ID          string        `bson:"_id"`
	Title       string        `bson:"Title"`
	Description string        `bson:"Description"`
	Genre       mongoGenre    `bson:"Genre"`
	Director    mongoDirector `bson:"Director"`
	Actors      []string      `bson:"Actors"`
	ImagePath   string        `bson:"ImagePath"`
	Featured    bool          `bson:"Featured"`
}

func newMongoMovie(m *model.Movie) mongoMovie {
	actors := m.Actors
	if actors == nil {
		actors = []string{}
	}
	return mongoMovie{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Genre:       mongoGenre(m.Genre),
		Director:    mongoDirector(m.Director),
		Actors:      actors,
		ImagePath:   m.ImagePath,
		Featured:    m.Featured,
	}
}

func (d mongoMovie) toModel() *model.Movie {
	actors := d.Actors
	if actors == nil {
		actors = []string{}
	}
	return &model.Movie{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Genre:       model.Genre(d.Genre),
		Director:    model.Director(d.Director),
		Actors:      actors,
		ImagePath:   d.ImagePath,
		Featured:    d.Featured,
	}
}

// MongoMovieRepo はMongoDBを使用した映画カタログリポジトリ。
type MongoMovieRepo struct {
	movies *mongo.Collection
}

// NewMongoMovieRepo はMongoMovieRepoを生成する。
func NewMongoMovieRepo(movies *mongo.Collection) *MongoMovieRepo {
	return &MongoMovieRepo{movies: movies}
}

// List は全作品をタイトル順で返す。
func (r *MongoMovieRepo) List(ctx context.Context) ([]*model.Movie, error) {
	cur, err := r.movies.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "Title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	var docs []mongoMovie
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode movies: %w", err)
	}

	movies := make([]*model.Movie, 0, len(docs))
	for _, d := range docs {
		movies = append(movies, d.toModel())
	}
	return movies, nil
}

func (r *MongoMovieRepo) findOne(ctx context.Context, filter bson.D) (*model.Movie, error) {
	var doc mongoMovie
	err := r.movies.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "Title", Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
func (r *MongoMovieRepo) FindByID(ctx context.Context, id string) (*model.Movie, error) {
	m, err := r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to find movie by ID: %w", err)
	}
	return m, nil
}

// FindByTitle はタイトルで作品を取得する。見つからない場合はnilを返す。
func (r *MongoMovieRepo) FindByTitle(ctx context.Context, title string) (*model.Movie, error) {
	m, err := r.findOne(ctx, bson.D{{Key: "Title", Value: title}})
	if err != nil {
		return nil, fmt.Errorf("failed to find movie by title: %w", err)
	}
	return m, nil
}

// FindByGenreName はジャンル情報を返す。見つからない場合はnilを返す。
func (r *MongoMovieRepo) FindByGenreName(ctx context.Context, name string) (*model.Genre, error) {
	m, err := r.findOne(ctx, bson.D{{Key: "Genre.Name", Value: name}})
	if err != nil {
		return nil, fmt.Errorf("failed to find genre: %w", err)
	}
	if m == nil {
		return nil, nil
	}
	return &m.Genre, nil
}

// FindByDirectorName は監督情報を返す。見つからない場合はnilを返す。
func (r *MongoMovieRepo) FindByDirectorName(ctx context.Context, name string) (*model.Director, error) {
	m, err := r.findOne(ctx, bson.D{{Key: "Director.Name", Value: name}})
	if err != nil {
		return nil, fmt.Errorf("failed to find director: %w", err)
	}
	if m == nil {
		return nil, nil
	}
	return &m.Director, nil
}

// Upsert はIDをキーに作品を作成または上書きする。
func (r *MongoMovieRepo) Upsert(ctx context.Context, m *model.Movie) error {
	_, err := r.movies.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: m.ID}},
		newMongoMovie(m),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert movie %q: %w", m.Title, err)
	}
	return nil
}

// compile-time interface check
var _ MovieRepository = (*MongoMovieRepo)(nil)
