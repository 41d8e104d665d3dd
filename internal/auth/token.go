package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/myflix/internal/model"
)

// ErrMissingSubject はトークンの主体となるユーザー名が空の場合のエラー。
var ErrMissingSubject = errors.New("user has no username to use as token subject")

// DefaultTokenTTL はトークンの既定の有効期間 (7日)。
const DefaultTokenTTL = 7 * 24 * time.Hour

// signingMethod はトークンの署名に使う唯一のアルゴリズム。
var signingMethod = jwt.SigningMethodHS256

// TokenConfig はIssuerとTokenVerifierに共通で注入する設定。
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Now は現在時刻を返す。nilの場合はtime.Nowを使う。
	Now func() time.Time
}

func (c TokenConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c TokenConfig) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TTL
}

// Token は発行済みのベアラートークン。
type Token struct {
	Raw       string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer はユーザーに対して署名付きトークンを発行する。
type Issuer struct {
	cfg TokenConfig
}

// NewIssuer はIssuerを生成する。
func NewIssuer(cfg TokenConfig) *Issuer {
	return &Issuer{cfg: cfg}
}

// TTL はトークンの有効期間を返す。
func (i *Issuer) TTL() time.Duration {
	return i.cfg.ttl()
}

// Issue はユーザー名を主体としたHS256署名のトークンを発行する。
// JWTの時刻は秒精度のため、発行時刻は秒単位に切り捨てる。
func (i *Issuer) Issue(user *model.User) (Token, error) {
	if user == nil || user.Username == "" {
		return Token{}, ErrMissingSubject
	}

	issuedAt := i.cfg.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.cfg.ttl())

	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
		Issuer:    i.cfg.Issuer,
	}

	raw, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return Token{
		Raw:       raw,
		Subject:   user.Username,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
