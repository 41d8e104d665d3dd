package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/myflix/internal/model"
)

// TokenStatus はトークン検証の結果種別。
type TokenStatus int

const (
	// TokenValid は検証成功。
	TokenValid TokenStatus = iota + 1
	// TokenMalformed はトークンが空、または構造が不正。
	TokenMalformed
	// TokenSignatureInvalid は署名またはアルゴリズムが一致しない。
	TokenSignatureInvalid
	// TokenExpired は有効期限切れ。
	TokenExpired
	// TokenSubjectNotFound は主体のユーザーが存在しない。
	TokenSubjectNotFound
)

// String はメトリクスのラベルやログに使う名前を返す。
func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenMalformed:
		return "malformed"
	case TokenSignatureInvalid:
		return "signature_invalid"
	case TokenExpired:
		return "expired"
	case TokenSubjectNotFound:
		return "subject_not_found"
	default:
		return "unknown"
	}
}

// TokenOutcome はトークン検証1回分の結果。
// StatusがTokenValidの場合のみUserが設定される。
// 主体の参照でインフラ障害が起きた場合はTokenSubjectNotFoundとして扱い、原因をErrに保持する。
type TokenOutcome struct {
	Status TokenStatus
	User   *model.User
	Err    error
}

// TokenVerifier はベアラートークンを検証し、主体をユーザーに解決する。
type TokenVerifier struct {
	cfg    TokenConfig
	store  CredentialStore
	parser *jwt.Parser
}

// NewTokenVerifier はTokenVerifierを生成する。
// cfgはIssuerに渡したものと同じ署名鍵を持つ必要がある。
func NewTokenVerifier(cfg TokenConfig, store CredentialStore) *TokenVerifier {
	return &TokenVerifier{
		cfg:   cfg,
		store: store,
		// 有効期限は署名検証の後に注入された時刻で判定する
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Verify はトークンを EXTRACT → PARSE → CHECK_EXPIRY → RESOLVE_SUBJECT の順に検証する。
// 各段階で失敗した時点で結果を返し、再試行はしない。
func (v *TokenVerifier) Verify(ctx context.Context, raw string) TokenOutcome {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ".")
	if raw == "" || len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return TokenOutcome{Status: TokenMalformed}
	}

	// ペイロードのデコードより先に署名を検証し、改ざんは常にSignatureInvalidとする
	sig, err := v.parser.DecodeSegment(parts[2])
	if err != nil {
		return TokenOutcome{Status: TokenSignatureInvalid}
	}
	if err := signingMethod.Verify(parts[0]+"."+parts[1], sig, v.cfg.Secret); err != nil {
		return TokenOutcome{Status: TokenSignatureInvalid}
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, v.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return TokenOutcome{Status: TokenMalformed}
		}
		return TokenOutcome{Status: TokenSignatureInvalid}
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return TokenOutcome{Status: TokenMalformed}
	}
	if !v.cfg.now().Before(claims.ExpiresAt.Time) {
		return TokenOutcome{Status: TokenExpired}
	}

	user, err := v.store.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return TokenOutcome{Status: TokenSubjectNotFound, Err: err}
	}
	if user == nil {
		return TokenOutcome{Status: TokenSubjectNotFound}
	}

	return TokenOutcome{Status: TokenValid, User: user}
}

func (v *TokenVerifier) keyFunc(_ *jwt.Token) (any, error) {
	return v.cfg.Secret, nil
}

// ExtractBearer は "Authorization: Bearer <token>" ヘッダー値からトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func ExtractBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
