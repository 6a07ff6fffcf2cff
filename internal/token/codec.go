// Package tokenはアクセストークン／リフレッシュトークンの発行と検証を行う。
// 2種類のトークンは別々のシークレットで署名する。リフレッシュトークンを
// アクセストークンとして使い回す（逆も）攻撃を署名レベルで遮断するため。
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"app/internal/domain/model"
)

// トークン種別。claimsのkindに入る。
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// 期限切れ。アクセストークンならクライアントはrefreshを呼べばよい。
	ErrExpired = errors.New("token expired")
	// 署名不正・形式不正。
	ErrMalformed = errors.New("token malformed")
	// 種別違い（refresh用トークンをaccessとして提示した等）。
	ErrWrongKind = errors.New("token wrong kind")
)

// Claimsは署名対象のクレーム一式。
// Rolesはアクセストークンのみのスナップショットで、認可の根拠にはしない
// （認可は毎回RoleResolverがDBを見る）。
type Claims struct {
	PrincipalType model.PrincipalType `json:"principal_type"`
	Roles         []model.Role        `json:"roles,omitempty"`
	Kind          Kind                `json:"kind"`
	jwt.RegisteredClaims
}

// PrincipalIDはsubをint64に戻す。
func (c *Claims) PrincipalID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Codecはトークンの発行・検証を行う。状態を持たないのでgoroutine間で共有してよい。
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewCodec(accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessはアクセストークンを発行する。rolesは発行時点のスナップショット。
func (c *Codec) IssueAccess(principalID int64, ptype model.PrincipalType, roles []model.Role) (string, time.Time, error) {
	return c.issue(KindAccess, principalID, ptype, roles, c.accessTTL, c.accessSecret)
}

// IssueRefreshはリフレッシュトークンを発行する。ロールは載せない。
func (c *Codec) IssueRefresh(principalID int64, ptype model.PrincipalType) (string, time.Time, error) {
	return c.issue(KindRefresh, principalID, ptype, nil, c.refreshTTL, c.refreshSecret)
}

func (c *Codec) issue(kind Kind, principalID int64, ptype model.PrincipalType, roles []model.Role, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)

	claims := Claims{
		PrincipalType: ptype,
		Roles:         roles,
		Kind:          kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// Verifyはrawを期待する種別として検証し、claimsを返す。
// 失敗はErrExpired / ErrMalformed / ErrWrongKindのどれかに正規化する。
func (c *Codec) Verify(raw string, expected Kind) (*Claims, error) {
	secret := c.accessSecret
	other := c.refreshSecret
	if expected == KindRefresh {
		secret = c.refreshSecret
		other = c.accessSecret
	}

	claims, err := parseHS256(raw, secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		// 期待と逆のシークレットで通るなら種別違い。
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			if _, otherErr := parseHS256(raw, other); otherErr == nil || errors.Is(otherErr, jwt.ErrTokenExpired) {
				return nil, ErrWrongKind
			}
		}
		return nil, ErrMalformed
	}

	// シークレットは合っているのにkindが違う（シークレットを共有する誤設定への保険）。
	if claims.Kind != expected {
		return nil, ErrWrongKind
	}
	if _, err := claims.PrincipalID(); err != nil {
		return nil, ErrMalformed
	}
	if claims.PrincipalType != model.PrincipalTypeUser && claims.PrincipalType != model.PrincipalTypeAdmin {
		return nil, ErrMalformed
	}

	return claims, nil
}

func parseHS256(raw string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
