package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"app/internal/domain/model"
)

func newTestCodec() *Codec {
	return NewCodec("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)
}

// =====================
// 発行→検証の往復
// =====================

func TestCodec_RoundTrip_Access(t *testing.T) {
	c := newTestCodec()

	roles := []model.Role{model.RoleUser, model.RoleManufacturer}
	raw, exp, err := c.IssueAccess(42, model.PrincipalTypeUser, roles)
	assert.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := c.Verify(raw, KindAccess)
	assert.NoError(t, err)

	id, err := claims.PrincipalID()
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, model.PrincipalTypeUser, claims.PrincipalType)
	assert.Equal(t, roles, claims.Roles)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.NotEmpty(t, claims.ID) // jti
}

func TestCodec_RoundTrip_Refresh(t *testing.T) {
	c := newTestCodec()

	raw, _, err := c.IssueRefresh(7, model.PrincipalTypeAdmin)
	assert.NoError(t, err)

	claims, err := c.Verify(raw, KindRefresh)
	assert.NoError(t, err)

	id, _ := claims.PrincipalID()
	assert.Equal(t, int64(7), id)
	assert.Equal(t, model.PrincipalTypeAdmin, claims.PrincipalType)
	assert.Empty(t, claims.Roles)
}

// =====================
// 種別違い
// =====================

func TestCodec_Verify_WrongKind(t *testing.T) {
	c := newTestCodec()

	access, _, err := c.IssueAccess(1, model.PrincipalTypeUser, []model.Role{model.RoleUser})
	assert.NoError(t, err)
	refresh, _, err := c.IssueRefresh(1, model.PrincipalTypeUser)
	assert.NoError(t, err)

	//accessトークンをrefreshとして検証
	_, err = c.Verify(access, KindRefresh)
	assert.ErrorIs(t, err, ErrWrongKind)

	//refreshトークンをaccessとして検証
	_, err = c.Verify(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrWrongKind)
}

// シークレットを共有してしまった場合でもkindで弾けること。
func TestCodec_Verify_WrongKind_SharedSecret(t *testing.T) {
	c := NewCodec("same-secret", "same-secret", time.Hour, time.Hour)

	refresh, _, err := c.IssueRefresh(1, model.PrincipalTypeUser)
	assert.NoError(t, err)

	_, err = c.Verify(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrWrongKind)
}

// =====================
// 期限切れ（境界）
// =====================

func TestCodec_Verify_Expired(t *testing.T) {
	//exp = now-1s のトークンは拒否される
	past := NewCodec("access-secret", "refresh-secret", -time.Second, -time.Second)

	raw, _, err := past.IssueAccess(1, model.PrincipalTypeUser, nil)
	assert.NoError(t, err)

	_, err = newTestCodec().Verify(raw, KindAccess)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_Verify_NotYetExpired(t *testing.T) {
	//exp = now+1s のトークンは受理される
	soon := NewCodec("access-secret", "refresh-secret", time.Second, time.Second)

	raw, _, err := soon.IssueAccess(1, model.PrincipalTypeUser, nil)
	assert.NoError(t, err)

	_, err = newTestCodec().Verify(raw, KindAccess)
	assert.NoError(t, err)
}

// =====================
// 不正トークン
// =====================

func TestCodec_Verify_Malformed(t *testing.T) {
	c := newTestCodec()

	_, err := c.Verify("not-a-jwt", KindAccess)
	assert.ErrorIs(t, err, ErrMalformed)

	//全く別のシークレットで署名されたトークン
	foreign := NewCodec("other-a", "other-b", time.Hour, time.Hour)
	raw, _, err := foreign.IssueAccess(1, model.PrincipalTypeUser, nil)
	assert.NoError(t, err)

	_, err = c.Verify(raw, KindAccess)
	assert.ErrorIs(t, err, ErrMalformed)
}
