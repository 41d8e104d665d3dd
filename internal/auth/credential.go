package auth

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/myflix/internal/model"
)

// CredentialStore は認証に必要なユーザー参照のインターフェース。
// 見つからない場合は (nil, nil) を返し、インフラ障害のみerrorを返す。
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// CredentialStatus はローカル認証の結果種別。
type CredentialStatus int

const (
	// CredentialSuccess は認証成功。
	CredentialSuccess CredentialStatus = iota + 1
	// CredentialInvalid はユーザー不在またはパスワード不一致。両者は区別しない。
	CredentialInvalid
	// CredentialLookupError はユーザー参照時のインフラ障害。
	CredentialLookupError
)

// String はメトリクスのラベルやログに使う名前を返す。
func (s CredentialStatus) String() string {
	switch s {
	case CredentialSuccess:
		return "success"
	case CredentialInvalid:
		return "invalid_credentials"
	case CredentialLookupError:
		return "lookup_error"
	default:
		return "unknown"
	}
}

// CredentialOutcome はローカル認証1回分の結果。
// StatusがCredentialSuccessの場合のみUserが設定され、
// CredentialLookupErrorの場合のみErrが設定される。
type CredentialOutcome struct {
	Status CredentialStatus
	User   *model.User
	Err    error
}

// dummyPassword はユーザー不在時にも同等のbcrypt比較を行うための平文。
const dummyPassword = "myflix-timing-equalizer"

// LocalVerifier はユーザー名とパスワードによるローカル認証を行う。
type LocalVerifier struct {
	store     CredentialStore
	hasher    *Hasher
	dummyHash string
}

// NewLocalVerifier はLocalVerifierを生成する。
// ダミー比較用のハッシュはここで1度だけ、Hasherと同じコストで生成する。
// リクエストのctxに依存させないため、セマフォを経由せずbcryptを直接呼ぶ。
func NewLocalVerifier(store CredentialStore, hasher *Hasher) *LocalVerifier {
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), hasher.Cost())
	if err != nil {
		slog.Error("failed to prepare timing hash", slog.String("error", err.Error()))
	}
	return &LocalVerifier{
		store:     store,
		hasher:    hasher,
		dummyHash: string(dummy),
	}
}

// Verify はユーザー名とパスワードを検証する。
// ユーザー参照以外の副作用は持たない。平文パスワードはログに出力しない。
func (v *LocalVerifier) Verify(ctx context.Context, username, password string) CredentialOutcome {
	user, err := v.store.FindByUsername(ctx, username)
	if err != nil {
		slog.Error("credential lookup failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return CredentialOutcome{Status: CredentialLookupError, Err: err}
	}

	if user == nil {
		// ユーザー列挙を防ぐため、不在時もbcrypt比較を1回行ってから失敗させる
		v.hasher.Verify(ctx, password, v.dummyHash)
		return CredentialOutcome{Status: CredentialInvalid}
	}

	if !v.hasher.Verify(ctx, password, user.PasswordHash) {
		return CredentialOutcome{Status: CredentialInvalid}
	}

	return CredentialOutcome{Status: CredentialSuccess, User: user}
}
