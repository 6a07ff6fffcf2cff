package usecase

import (
	"context"

	"app/internal/domain/model"
	"app/internal/repository"
)

// RoleResolverはプリンシパルの「今の」ロールをDBから解決する。
// トークンに入っているrolesはUI向けのスナップショットにすぎず、
// 認可判定ではここを必ず通す（Require*ガードは毎リクエスト呼ぶ）。
type RoleResolver struct {
	users         repository.UserRepository
	admins        repository.AdminRepository
	manufacturers repository.ManufacturerProfileRepository
}

func NewRoleResolver(
	users repository.UserRepository,
	admins repository.AdminRepository,
	manufacturers repository.ManufacturerProfileRepository,
) *RoleResolver {
	return &RoleResolver{
		users:         users,
		admins:        admins,
		manufacturers: manufacturers,
	}
}

// Resolveは種別とIDから正規化済みPrincipalを返す。
// 見つからなければErrPrincipalNotFound。IsActiveの扱いは呼び出し側（ガード）が決める。
// DB障害はそのまま返す（認証エラーと混ぜない）。
func (r *RoleResolver) Resolve(ctx context.Context, ptype model.PrincipalType, id int64) (model.Principal, error) {
	switch ptype {
	case model.PrincipalTypeAdmin:
		admin, err := r.admins.FindByID(ctx, id)
		if err != nil {
			return model.Principal{}, err
		}
		if admin == nil {
			return model.Principal{}, ErrPrincipalNotFound
		}

		return model.Principal{
			ID:       admin.ID,
			Type:     model.PrincipalTypeAdmin,
			Roles:    []model.Role{model.RoleAdmin},
			IsActive: admin.IsActive,
		}, nil

	case model.PrincipalTypeUser:
		user, err := r.users.FindByID(ctx, id)
		if err != nil {
			return model.Principal{}, err
		}
		if user == nil {
			return model.Principal{}, ErrPrincipalNotFound
		}

		roles := []model.Role{model.RoleUser}

		//manufacturerは派生ロール。APPROVEDの間だけ付く（毎回見直す）。
		profile, err := r.manufacturers.FindByUserID(ctx, user.ID)
		if err != nil {
			return model.Principal{}, err
		}
		if profile != nil && profile.Status == model.ManufacturerStatusApproved {
			roles = append(roles, model.RoleManufacturer)
		}

		return model.Principal{
			ID:       user.ID,
			Type:     model.PrincipalTypeUser,
			Roles:    roles,
			IsActive: user.IsActive,
		}, nil

	default:
		return model.Principal{}, ErrPrincipalNotFound
	}
}
