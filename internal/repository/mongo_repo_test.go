package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hitoshi/myflix/internal/model"
)

func TestMongoRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*MongoUserRepo)(nil)
	var _ MovieRepository = (*MongoMovieRepo)(nil)
}

// usersドキュメントのフィールド名が既存データと互換であることを検証する。
func TestMongoUser_DocumentShape(t *testing.T) {
	birthday := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	doc := newMongoUser(&model.User{
		ID:           "user-1",
		Username:     "alice01",
		PasswordHash: "hash",
		Email:        "a@x.com",
		Birthday:     &birthday,
	})

	b, err := bson.Marshal(doc)
	require.NoError(t, err)
	raw := bson.Raw(b)

	assert.Equal(t, "user-1", raw.Lookup("_id").StringValue())
	assert.Equal(t, "alice01", raw.Lookup("Username").StringValue())
	assert.Equal(t, "hash", raw.Lookup("Password").StringValue())
	assert.Equal(t, "a@x.com", raw.Lookup("Email").StringValue())
	assert.Equal(t, bson.TypeDateTime, raw.Lookup("Birthday").Type)
	// お気に入りはnullではなく空配列として保存する
	assert.Equal(t, bson.TypeArray, raw.Lookup("FavoriteMovies").Type)
}

func TestMongoUser_OmitsMissingBirthday(t *testing.T) {
	b, err := bson.Marshal(newMongoUser(&model.User{ID: "user-1", Username: "alice01"}))
	require.NoError(t, err)

	_, err = bson.Raw(b).LookupErr("Birthday")
	assert.Error(t, err)
}

func TestMongoUser_ToModel(t *testing.T) {
	u := mongoUser{
		ID:             "user-1",
		Username:       "alice01",
		Password:       "hash",
		FavoriteMovies: []string{"m1", "m1"},
	}.toModel()

	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, []string{"m1", "m1"}, u.FavoriteMovies)

	empty := mongoUser{ID: "user-2"}.toModel()
	assert.NotNil(t, empty.FavoriteMovies)
}

func TestMongoMovie_DocumentShape(t *testing.T) {
	doc := newMongoMovie(&model.Movie{
		ID:       "m1",
		Title:    "The Shining",
		Genre:    model.Genre{Name: "Horror", Description: "Scary."},
		Director: model.Director{Name: "Stanley Kubrick"},
	})

	b, err := bson.Marshal(doc)
	require.NoError(t, err)
	raw := bson.Raw(b)

	assert.Equal(t, "The Shining", raw.Lookup("Title").StringValue())
	assert.Equal(t, "Horror", raw.Lookup("Genre", "Name").StringValue())
	assert.Equal(t, "Stanley Kubrick", raw.Lookup("Director", "Name").StringValue())
	_, err = raw.LookupErr("Director", "Birth")
	assert.Error(t, err)
	assert.Equal(t, bson.TypeArray, raw.Lookup("Actors").Type)
}

func TestMongoMovie_ToModel(t *testing.T) {
	death := time.Date(1999, 3, 7, 0, 0, 0, 0, time.UTC)
	m := mongoMovie{
		ID:       "m1",
		Title:    "The Shining",
		Director: mongoDirector{Name: "Stanley Kubrick", Death: &death},
	}.toModel()

	assert.Equal(t, "Stanley Kubrick", m.Director.Name)
	require.NotNil(t, m.Director.Death)
	assert.True(t, m.Director.Death.Equal(death))
	assert.NotNil(t, m.Actors)
}

func TestCountOrphans(t *testing.T) {
	tests := []struct {
		name      string
		favorites []string
		known     []string
		want      int
	}{
		{"none orphaned", []string{"m1", "m2"}, []string{"m1", "m2", "m3"}, 0},
		{"duplicates counted", []string{"gone", "m1", "gone"}, []string{"m1"}, 2},
		{"empty catalog", []string{"m1", "m2"}, []string{}, 2},
		{"no favorites", nil, []string{"m1"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countOrphans(tt.favorites, tt.known))
		})
	}
}
