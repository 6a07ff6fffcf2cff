package usecase

import (
	"context"
	"errors"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newResolverWithMocks() (*RoleResolver, *MockUserRepository, *MockAdminRepository, *MockManufacturerRepository) {
	userRepo := new(MockUserRepository)
	adminRepo := new(MockAdminRepository)
	mfrRepo := new(MockManufacturerRepository)
	return NewRoleResolver(userRepo, adminRepo, mfrRepo), userRepo, adminRepo, mfrRepo
}

// 一般ユーザー => userロールのみ
func TestRoleResolver_User_BaseRole(t *testing.T) {
	ctx := context.Background()
	r, userRepo, _, mfrRepo := newResolverWithMocks()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	mfrRepo.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)

	p, err := r.Resolve(ctx, model.PrincipalTypeUser, 1)
	assert.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleUser}, p.Roles)
	assert.True(t, p.IsActive)
}

// APPROVEDの出品者 => user + manufacturer
func TestRoleResolver_User_ApprovedManufacturer(t *testing.T) {
	ctx := context.Background()
	r, userRepo, _, mfrRepo := newResolverWithMocks()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	mfrRepo.On("FindByUserID", mock.Anything, int64(1)).Return(&model.ManufacturerProfile{
		UserID: 1,
		Status: model.ManufacturerStatusApproved,
	}, nil)

	p, err := r.Resolve(ctx, model.PrincipalTypeUser, 1)
	assert.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleManufacturer}, p.Roles)
	assert.True(t, p.HasRole(model.RoleManufacturer))
}

// 承認取り消し後はmanufacturerが付かない（次のResolveから即反映）
func TestRoleResolver_User_RevokedManufacturer(t *testing.T) {
	ctx := context.Background()
	r, userRepo, _, mfrRepo := newResolverWithMocks()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	mfrRepo.On("FindByUserID", mock.Anything, int64(1)).Return(&model.ManufacturerProfile{
		UserID: 1,
		Status: model.ManufacturerStatusRevoked,
	}, nil)

	p, err := r.Resolve(ctx, model.PrincipalTypeUser, 1)
	assert.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleUser}, p.Roles)
	assert.False(t, p.HasRole(model.RoleManufacturer))
}

// PENDINGもロールは付かない
func TestRoleResolver_User_PendingManufacturer(t *testing.T) {
	ctx := context.Background()
	r, userRepo, _, mfrRepo := newResolverWithMocks()

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
	mfrRepo.On("FindByUserID", mock.Anything, int64(1)).Return(&model.ManufacturerProfile{
		UserID: 1,
		Status: model.ManufacturerStatusPending,
	}, nil)

	p, err := r.Resolve(ctx, model.PrincipalTypeUser, 1)
	assert.NoError(t, err)
	assert.False(t, p.HasRole(model.RoleManufacturer))
}

// admin => adminロールのみ
func TestRoleResolver_Admin(t *testing.T) {
	ctx := context.Background()
	r, _, adminRepo, _ := newResolverWithMocks()

	adminRepo.On("FindByID", mock.Anything, int64(5)).Return(&model.Admin{ID: 5, IsActive: true}, nil)

	p, err := r.Resolve(ctx, model.PrincipalTypeAdmin, 5)
	assert.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleAdmin}, p.Roles)
	assert.Equal(t, model.PrincipalTypeAdmin, p.Type)
}

// 見つからない => ErrPrincipalNotFound
func TestRoleResolver_UserNotFound(t *testing.T) {
	ctx := context.Background()
	r, userRepo, _, _ := newResolverWithMocks()

	userRepo.On("FindByID", mock.Anything, int64(404)).Return(nil, nil)

	_, err := r.Resolve(ctx, model.PrincipalTypeUser, 404)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}

// DB障害はそのまま上がる（認証エラーに化けない）
func TestRoleResolver_DBErrorPassthrough(t *testing.T) {
	ctx := context.Background()
	r, userRepo, _, _ := newResolverWithMocks()

	dbErr := errors.New("connection refused")
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(nil, dbErr)

	_, err := r.Resolve(ctx, model.PrincipalTypeUser, 1)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrPrincipalNotFound)
}

// 未知の種別 => ErrPrincipalNotFound
func TestRoleResolver_UnknownType(t *testing.T) {
	r, _, _, _ := newResolverWithMocks()

	_, err := r.Resolve(context.Background(), model.PrincipalType("ghost"), 1)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}
