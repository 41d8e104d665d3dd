package handler

import (
	"time"

	"github.com/hitoshi/myflix/internal/model"
)

// JSONのフィールド名は既存クライアントとの互換のためPascalCaseを維持する。

// userRequest は登録・更新リクエストのボディ。
type userRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
	Email    string `json:"Email"`
	Birthday string `json:"Birthday,omitempty"`
}

func (r userRequest) toInput() model.UserInput {
	return model.UserInput{
		Username: r.Username,
		Password: r.Password,
		Email:    r.Email,
		Birthday: r.Birthday,
	}
}

// userResponse はユーザーのレスポンス表現。パスワードハッシュは含めない。
type userResponse struct {
	ID             string     `json:"_id"`
	Username       string     `json:"Username"`
	Email          string     `json:"Email"`
	Birthday       *time.Time `json:"Birthday,omitempty"`
	FavoriteMovies []string   `json:"FavoriteMovies"`
}

func newUserResponse(u *model.User) userResponse {
	favorites := u.FavoriteMovies
	if favorites == nil {
		favorites = []string{}
	}
	return userResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Birthday:       u.Birthday,
		FavoriteMovies: favorites,
	}
}

func newUserListResponse(users []*model.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	return out
}

type genreResponse struct {
	Name        string `json:"Name"`
	Description string `json:"Description"`
}

type directorResponse struct {
	Name  string     `json:"Name"`
	Bio   string     `json:"Bio"`
	Birth *time.Time `json:"Birth,omitempty"`
	Death *time.Time `json:"Death,omitempty"`
}

type movieResponse struct {
	ID          string           `json:"_id"`
	Title       string           `json:"Title"`
	Description string           `json:"Description"`
	Genre       genreResponse    `json:"Genre"`
	Director    directorResponse `json:"Director"`
	Actors      []string         `json:"Actors"`
	ImagePath   string           `json:"ImagePath"`
	Featured    bool             `json:"Featured"`
}

func newGenreResponse(g *model.Genre) genreResponse {
	return genreResponse{Name: g.Name, Description: g.Description}
}

func newDirectorResponse(d *model.Director) directorResponse {
	return directorResponse{Name: d.Name, Bio: d.Bio, Birth: d.Birth, Death: d.Death}
}

func newMovieResponse(m *model.Movie) movieResponse {
	actors := m.Actors
	if actors == nil {
		actors = []string{}
	}
	return movieResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Genre:       newGenreResponse(&m.Genre),
		Director:    newDirectorResponse(&m.Director),
		Actors:      actors,
		ImagePath:   m.ImagePath,
		Featured:    m.Featured,
	}
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}
