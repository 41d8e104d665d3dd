package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoDB上のコレクション名。
const (
	MongoUsersCollection  = "users"
	MongoMoviesCollection = "movies"
)

// OpenMongo はMongoDBへ接続し、指定データベースを返す。
// 接続直後にPingで疎通を確認する。
func OpenMongo(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, client.Database(dbName), nil
}

// EnsureMongoIndexes はユーザー名と映画タイトルの一意インデックスを作成する。
// 既に存在する場合は何もしない。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{
			collection: MongoUsersCollection,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "Username", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: MongoMoviesCollection,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "Title", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: MongoMoviesCollection,
			model:      mongo.IndexModel{Keys: bson.D{{Key: "Genre.Name", Value: 1}}},
		},
		{
			collection: MongoMoviesCollection,
			model:      mongo.IndexModel{Keys: bson.D{{Key: "Director.Name", Value: 1}}},
		},
	}

	for _, idx := range indexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

// MongoPinger はmongo.Clientをヘルスチェック用のPingerに適合させる。
type MongoPinger struct {
	Client *mongo.Client
}

// Ping はMongoDBへの疎通を確認する。
func (p MongoPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}
