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

// mongoUser はusersコレクションのドキュメント形式。
type mongoUser struct {
	ID             string     `bson:"_id"`
	Username       string     `bson:"Username"`
	Password       string     `bson:"Password"`
	Email          string     `bson:"Email"`
	Birthday       *time.Time `bson:"Birthday,omitempty"`
	FavoriteMovies []string   `bson:"FavoriteMovies"`
	CreatedAt      time.Time  `bson:"CreatedAt"`
	UpdatedAt      time.Time  `bson:"UpdatedAt"`
}

func newMongoUser(u *model.User) mongoUser {
	favorites := u.FavoriteMovies
	if favorites == nil {
		favorites = []string{}
	}
	return mongoUser{
		ID:             u.ID,
		Username:       u.Username,
		Password:       u.PasswordHash,
		Email:          u.Email,
		Birthday:       u.Birthday,
		FavoriteMovies: favorites,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d mongoUser) toModel() *model.User {
	favorites := d.FavoriteMovies
	if favorites == nil {
		favorites = []string{}
	}
	return &model.User{
		ID:             d.ID,
		Username:       d.Username,
		PasswordHash:   d.Password,
		Email:          d.Email,
		Birthday:       d.Birthday,
		FavoriteMovies: favorites,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
type MongoUserRepo struct {
	users  *mongo.Collection
	movies *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
// moviesはお気に入りの掃除でカタログを参照するために使う。
func NewMongoUserRepo(users, movies *mongo.Collection) *MongoUserRepo {
	return &MongoUserRepo{users: users, movies: movies}
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc mongoUser
	err := r.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := r.findOne(ctx, bson.D{{Key: "Username", Value: username}})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// List は全ユーザーをユーザー名順で返す。
func (r *MongoUserRepo) List(ctx context.Context) ([]*model.User, error) {
	cur, err := r.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "Username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]*model.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toModel())
	}
	return users, nil
}

// Create はユーザーを作成する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.users.InsertOne(ctx, newMongoUser(user))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はusernameで特定したユーザーのプロフィールを上書きする。
func (r *MongoUserRepo) Update(ctx context.Context, username string, user *model.User) (*model.User, error) {
	set := bson.D{
		{Key: "Username", Value: user.Username},
		{Key: "Password", Value: user.PasswordHash},
		{Key: "Email", Value: user.Email},
		{Key: "UpdatedAt", Value: user.UpdatedAt},
	}
	if user.Birthday != nil {
		set = append(set, bson.E{Key: "Birthday", Value: user.Birthday})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if user.Birthday == nil {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "Birthday", Value: ""}}})
	}

	updated, err := r.findOneAndUpdate(ctx, bson.D{{Key: "Username", Value: username}}, update)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// DeleteByUsername はユーザーを削除する。
func (r *MongoUserRepo) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	res, err := r.users.DeleteOne(ctx, bson.D{{Key: "Username", Value: username}})
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// AddFavorite はお気に入りの末尾に映画IDを追加する。
func (r *MongoUserRepo) AddFavorite(ctx context.Context, username, movieID string) (*model.User, error) {
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "FavoriteMovies", Value: movieID}}}}
	user, err := r.findOneAndUpdate(ctx, bson.D{{Key: "Username", Value: username}}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	return user, nil
}

// RemoveFavorite はお気に入りから映画IDを全て取り除く。
func (r *MongoUserRepo) RemoveFavorite(ctx context.Context, username, movieID string) (*model.User, error) {
	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "FavoriteMovies", Value: movieID}}}}
	user, err := r.findOneAndUpdate(ctx, bson.D{{Key: "Username", Value: username}}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to remove favorite: %w", err)
	}
	return user, nil
}

// PruneFavorites はカタログに存在しない映画を指すお気に入りを削除する。
func (r *MongoUserRepo) PruneFavorites(ctx context.Context) (int64, error) {
	known, err := r.movieIDs(ctx)
	if err != nil {
		return 0, err
	}

	filter := bson.D{{Key: "FavoriteMovies", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$nin", Value: known}}}}}}
	cur, err := r.users.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to find users with orphaned favorites: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return 0, fmt.Errorf("failed to decode users: %w", err)
	}

	var pruned int64
	pull := bson.D{{Key: "$pull", Value: bson.D{{Key: "FavoriteMovies", Value: bson.D{{Key: "$nin", Value: known}}}}}}
	for _, d := range docs {
		if _, err := r.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: d.ID}}, pull); err != nil {
			return pruned, fmt.Errorf("failed to prune favorites of %s: %w", d.Username, err)
		}
		pruned += int64(countOrphans(d.FavoriteMovies, known))
	}
	return pruned, nil
}

func (r *MongoUserRepo) movieIDs(ctx context.Context) ([]string, error) {
	cur, err := r.movies.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list movie IDs: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode movie IDs: %w", err)
	}

	// nilスライスはnullとしてエンコードされ$ninが失敗するため空スライスで初期化する
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *MongoUserRepo) findOneAndUpdate(ctx context.Context, filter, update bson.D) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoUser
	err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// countOrphans はknownに含まれないお気に入りの件数を数える。
func countOrphans(favorites, known []string) int {
	set := make(map[string]struct{}, len(known))
	for _, id := range known {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range favorites {
		if _, ok := set[id]; !ok {
			n++
		}
	}
	return n
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
