package usecase

import (
	"context"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
)

// 管理者によるユーザー管理。強制ログアウト・凍結・監査ログ閲覧。
type AdminUsecase struct {
	users repository.UserRepository
	audit repository.AuditLogRepository
	auth  *AuthUsecase
}

func NewAdminUsecase(
	users repository.UserRepository,
	audit repository.AuditLogRepository,
	auth *AuthUsecase,
) *AdminUsecase {
	return &AdminUsecase{
		users: users,
		audit: audit,
		auth:  auth,
	}
}

// ForceLogoutUserは対象ユーザーの全セッションを失効させる。
// 発行済みアクセストークンはTTL切れまで有効だが、refreshはもうできない。
func (u *AdminUsecase) ForceLogoutUser(ctx context.Context, adminID int64, userID int64) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrPrincipalNotFound
	}

	if err := u.auth.RevokeAllSessions(ctx, model.PrincipalTypeUser, userID); err != nil {
		return err
	}

	u.writeAudit(ctx, adminID, userID, model.AuditActionRevokeAll)
	return nil
}

// SetUserActiveは凍結（false）と解除（true）。
// 凍結すると手持ちのアクセストークンが有効でも次のリクエストから401になる。
func (u *AdminUsecase) SetUserActive(ctx context.Context, adminID int64, userID int64, active bool) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrPrincipalNotFound
	}

	if user.IsActive == active {
		return nil
	}

	user.IsActive = active
	if err := u.users.Update(ctx, user); err != nil {
		return err
	}

	//凍結時はセッションも同時に落とす
	if !active {
		if err := u.auth.RevokeAllSessions(ctx, model.PrincipalTypeUser, userID); err != nil {
			return err
		}
		u.writeAudit(ctx, adminID, userID, model.AuditActionRevokeAll)
	}
	return nil
}

type ListAuditLogsInput struct {
	ActorID *int64
	Limit   int
	Offset  int
}

// ListAuditLogsは監査ログの新しい順一覧。
func (u *AdminUsecase) ListAuditLogs(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit < 1 || in.Limit > 200 {
		in.Limit = 50
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	return u.audit.List(ctx, repository.AuditLogFilter{
		ActorID: in.ActorID,
		Limit:   in.Limit,
		Offset:  in.Offset,
	})
}

func (u *AdminUsecase) writeAudit(ctx context.Context, adminID int64, userID int64, action model.AuditAction) {
	if u.audit == nil {
		return
	}

	_ = u.audit.Create(ctx, model.AuditLog{
		ActorID:      adminID,
		ActorType:    model.AuditResourceAdmin,
		Action:       action,
		ResourceType: model.AuditResourceUser,
		ResourceID:   userID,
		CreatedAt:    time.Now(),
	})
}
