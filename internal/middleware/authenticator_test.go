package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/token"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// レスポンス確認用
// =====================

type guardError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// =====================
// repoモック（middleware専用：名前衝突回避）
// =====================

type MockUserRepoForMW struct {
	mock.Mock
}

func (m *MockUserRepoForMW) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepoForMW) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepoForMW) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepoForMW) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepoForMW) UpdateRefreshState(ctx context.Context, userID int64, tokenHash *string, expiresAt *time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockUserRepoForMW) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

var _ repository.UserRepository = (*MockUserRepoForMW)(nil)

type MockAdminRepoForMW struct {
	mock.Mock
}

func (m *MockAdminRepoForMW) FindByID(ctx context.Context, id int64) (*model.Admin, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Admin)
	return a, args.Error(1)
}

func (m *MockAdminRepoForMW) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	args := m.Called(ctx, email)
	a, _ := args.Get(0).(*model.Admin)
	return a, args.Error(1)
}

func (m *MockAdminRepoForMW) Update(ctx context.Context, admin *model.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepoForMW) UpdateRefreshState(ctx context.Context, adminID int64, tokenHash *string, expiresAt *time.Time) error {
	args := m.Called(ctx, adminID, tokenHash, expiresAt)
	return args.Error(0)
}

var _ repository.AdminRepository = (*MockAdminRepoForMW)(nil)

type MockManufacturerRepoForMW struct {
	mock.Mock
}

func (m *MockManufacturerRepoForMW) Create(ctx context.Context, profile *model.ManufacturerProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockManufacturerRepoForMW) FindByUserID(ctx context.Context, userID int64) (*model.ManufacturerProfile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*model.ManufacturerProfile)
	return p, args.Error(1)
}

func (m *MockManufacturerRepoForMW) UpdateStatus(ctx context.Context, userID int64, status model.ManufacturerStatus, reviewedByAdminID int64) error {
	args := m.Called(ctx, userID, status, reviewedByAdminID)
	return args.Error(0)
}

var _ repository.ManufacturerProfileRepository = (*MockManufacturerRepoForMW)(nil)

// =====================
// helper
// =====================

type fixture struct {
	codec  *token.Codec
	auth   *middleware.Authenticator
	users  *MockUserRepoForMW
	admins *MockAdminRepoForMW
	mfrs   *MockManufacturerRepoForMW
}

func newFixture() *fixture {
	codec := token.NewCodec("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	users := new(MockUserRepoForMW)
	admins := new(MockAdminRepoForMW)
	mfrs := new(MockManufacturerRepoForMW)

	resolver := usecase.NewRoleResolver(users, admins, mfrs)
	return &fixture{
		codec:  codec,
		auth:   middleware.NewAuthenticator(codec, resolver),
		users:  users,
		admins: admins,
		mfrs:   mfrs,
	}
}

func mustAccessToken(t *testing.T, codec *token.Codec, id int64, ptype model.PrincipalType, roles ...model.Role) string {
	t.Helper()
	raw, _, err := codec.IssueAccess(id, ptype, roles)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	return raw
}

func okHandler(c echo.Context) error {
	p, _ := middleware.PrincipalFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID})
}

func runGuard(t *testing.T, mw echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.GET("/protected", okHandler, mw)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeGuardError(t *testing.T, rec *httptest.ResponseRecorder) guardError {
	t.Helper()
	var g guardError
	_ = json.NewDecoder(rec.Body).Decode(&g)
	return g
}

// =====================
// RequireUser（トークン検証まわり）
// =====================

// Authorizationなし => 401 NO_TOKEN
func TestAuthenticator_RequireUser_NoHeader(t *testing.T) {
	f := newFixture()

	rec := runGuard(t, f.auth.RequireUser(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "NO_TOKEN", decodeGuardError(t, rec).Error)
}

// Bearer形式じゃない => 401 NO_TOKEN
func TestAuthenticator_RequireUser_BadScheme(t *testing.T) {
	f := newFixture()

	rec := runGuard(t, f.auth.RequireUser(), "Token abc.def.ghi")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "NO_TOKEN", decodeGuardError(t, rec).Error)
}

// 期限切れ => 401 TOKEN_EXPIRED（クライアントはこのコードのときだけrefreshする）
func TestAuthenticator_RequireUser_Expired(t *testing.T) {
	f := newFixture()

	expired := token.NewCodec("access-secret", "refresh-secret", -1*time.Minute, 24*time.Hour)
	raw := mustAccessToken(t, expired, 1, model.PrincipalTypeUser)

	rec := runGuard(t, f.auth.RequireUser(), "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeGuardError(t, rec).Error)
}

// リフレッシュトークンをaccessとして提示 => 401 TOKEN_WRONG_KIND
func TestAuthenticator_RequireUser_RefreshTokenRejected(t *testing.T) {
	f := newFixture()

	refresh, _, err := f.codec.IssueRefresh(1, model.PrincipalTypeUser)
	assert.NoError(t, err)

	rec := runGuard(t, f.auth.RequireUser(), "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_WRONG_KIND", decodeGuardError(t, rec).Error)
}

// 壊れたトークン => 401 TOKEN_MALFORMED
func TestAuthenticator_RequireUser_Malformed(t *testing.T) {
	f := newFixture()

	rec := runGuard(t, f.auth.RequireUser(), "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_MALFORMED", decodeGuardError(t, rec).Error)
}

// トークンは有効だがユーザーがもういない => 401 PRINCIPAL_NOT_FOUND
func TestAuthenticator_RequireUser_PrincipalGone(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(nil, nil)

	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleUser)

	rec := runGuard(t, f.auth.RequireUser(), "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "PRINCIPAL_NOT_FOUND", decodeGuardError(t, rec).Error)
}

// 停止済みユーザーはトークンが有効でも401 ACCOUNT_INACTIVE
func TestAuthenticator_RequireUser_Inactive(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: false}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)

	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleUser)

	rec := runGuard(t, f.auth.RequireUser(), "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "ACCOUNT_INACTIVE", decodeGuardError(t, rec).Error)
}

// DB障害は500。401に化けない
func TestAuthenticator_RequireUser_DBError(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(nil, assert.AnError)

	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleUser)

	rec := runGuard(t, f.auth.RequireUser(), "Bearer "+raw)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", decodeGuardError(t, rec).Error)
}

// 正常 => principalがcontextに入る
func TestAuthenticator_RequireUser_Success(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, IsActive: true}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(7)).Return(nil, nil)

	raw := mustAccessToken(t, f.codec, 7, model.PrincipalTypeUser, model.RoleUser)

	rec := runGuard(t, f.auth.RequireUser(), "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())
}

// =====================
// ロール系ガード（認可の根拠はトークンではなくDB）
// =====================

// 一般ユーザーでadminルート => 403 FORBIDDEN
func TestAuthenticator_RequireAdmin_UserForbidden(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)

	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleUser)

	rec := runGuard(t, f.auth.RequireAdmin(), "Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeGuardError(t, rec).Error)
}

// トークンにadminロールを詰めてもDBがuserなら403（クレームの偽装は効かない）
func TestAuthenticator_RequireAdmin_TokenRolesIgnored(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)

	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleAdmin)

	rec := runGuard(t, f.auth.RequireAdmin(), "Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// adminは通る
func TestAuthenticator_RequireAdmin_Success(t *testing.T) {
	f := newFixture()

	f.admins.On("FindByID", mock.Anything, int64(2)).Return(&model.Admin{ID: 2, IsActive: true}, nil)

	raw := mustAccessToken(t, f.codec, 2, model.PrincipalTypeAdmin, model.RoleAdmin)

	rec := runGuard(t, f.auth.RequireAdmin(), "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// 承認済み出品者はRequireManufacturerを通る
func TestAuthenticator_RequireManufacturer_Approved(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(1)).Return(&model.ManufacturerProfile{
		UserID: 1,
		Status: model.ManufacturerStatusApproved,
	}, nil)

	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleUser, model.RoleManufacturer)

	rec := runGuard(t, f.auth.RequireManufacturer(), "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// 承認取り消し後は、古いトークンにmanufacturerが残っていても403
func TestAuthenticator_RequireManufacturer_RevokedMidToken(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(1)).Return(&model.ManufacturerProfile{
		UserID: 1,
		Status: model.ManufacturerStatusRevoked,
	}, nil)

	//トークンは承認時代に発行されたもの
	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleUser, model.RoleManufacturer)

	rec := runGuard(t, f.auth.RequireManufacturer(), "Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// RequireAnyOfはORで判定する
func TestAuthenticator_RequireAnyOf(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)

	raw := mustAccessToken(t, f.codec, 1, model.PrincipalTypeUser, model.RoleUser)

	rec := runGuard(t, f.auth.RequireAnyOf(model.RoleUser, model.RoleAdmin), "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = runGuard(t, f.auth.RequireAnyOf(model.RoleAdmin, model.RoleManufacturer), "Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =====================
// Optional
// =====================

// トークンなしでも200（匿名）
func TestAuthenticator_Optional_Anonymous(t *testing.T) {
	f := newFixture()

	e := echo.New()
	e.GET("/mixed", func(c echo.Context) error {
		_, ok := middleware.PrincipalFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"authenticated": ok})
	}, f.auth.Optional())

	req := httptest.NewRequest(http.MethodGet, "/mixed", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

// 無効トークンは匿名扱いで200
func TestAuthenticator_Optional_InvalidTokenIgnored(t *testing.T) {
	f := newFixture()

	e := echo.New()
	e.GET("/mixed", func(c echo.Context) error {
		_, ok := middleware.PrincipalFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"authenticated": ok})
	}, f.auth.Optional())

	req := httptest.NewRequest(http.MethodGet, "/mixed", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

// 有効トークンならprincipalが添えられる
func TestAuthenticator_Optional_Authenticated(t *testing.T) {
	f := newFixture()

	f.users.On("FindByID", mock.Anything, int64(3)).Return(&model.User{ID: 3, IsActive: true}, nil)
	f.mfrs.On("FindByUserID", mock.Anything, int64(3)).Return(nil, nil)

	raw := mustAccessToken(t, f.codec, 3, model.PrincipalTypeUser, model.RoleUser)

	e := echo.New()
	e.GET("/mixed", okHandler, f.auth.Optional())

	req := httptest.NewRequest(http.MethodGet, "/mixed", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":3}`, rec.Body.String())
}
