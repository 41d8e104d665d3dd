// Package auth はパスワードのハッシュ化、ローカル認証、JWTの発行と検証を提供する。
//
// 認証方式は閉じた2種類のみ:
//   - LocalVerifier: ユーザー名とパスワードによるログイン
//   - TokenVerifier: Authorization: Bearer ヘッダーのJWT検証
//
// 署名鍵はTokenConfigとしてIssuerとTokenVerifierの両方に明示的に注入する。
// パッケージレベルの状態は持たない。
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrEmptyPassword は空のパスワードをハッシュ化しようとした場合のエラー。
var ErrEmptyPassword = errors.New("password must not be empty")

// Hasher はbcryptによるソルト付きパスワードハッシュを提供する。
// bcryptは意図的に低速なため、同時実行数をセマフォで制限する。
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher はHasherを生成する。
// costがbcryptの許容範囲外の場合はbcrypt.DefaultCostを使用する。
// maxConcurrentが1未満の場合は1として扱う。
func NewHasher(cost, maxConcurrent int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Cost は使用しているbcryptのワークファクターを返す。
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash は平文パスワードをソルト付きでハッシュ化する。
// 同じ平文でも呼び出しごとに異なるハッシュ値を返す。
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire hasher slot: %w", err)
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Verify は平文パスワードがハッシュ値と一致するかを検証する。
// 比較はbcrypt内部の定数時間比較で行われる。
// ハッシュ値が不正な形式の場合やctxがキャンセルされた場合はfalseを返す。
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
