package usecase

import (
	"context"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
)

// 出品者申請と、管理者による承認・取り消し。
// 承認状態が変わると次のリクエストからRoleResolverの結果が変わる
// （発行済みアクセストークンのrolesが古くても効かない）。
type ManufacturerUsecase struct {
	profiles repository.ManufacturerProfileRepository
	audit    repository.AuditLogRepository
}

func NewManufacturerUsecase(
	profiles repository.ManufacturerProfileRepository,
	audit repository.AuditLogRepository,
) *ManufacturerUsecase {
	return &ManufacturerUsecase{
		profiles: profiles,
		audit:    audit,
	}
}

type ManufacturerProfileDTO struct {
	UserID      int64  `json:"user_id"`
	CompanyName string `json:"company_name"`
	Status      string `json:"status"`
}

type ApplyManufacturerRequest struct {
	CompanyName string `json:"company_name"`
}

// Applyはユーザー本人の出品者申請。1ユーザー1件。
func (u *ManufacturerUsecase) Apply(ctx context.Context, userID int64, req ApplyManufacturerRequest) (*ManufacturerProfileDTO, error) {
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return nil, ErrValidation
	}

	existing, err := u.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	profile := &model.ManufacturerProfile{
		UserID:      userID,
		CompanyName: name,
		Status:      model.ManufacturerStatusPending,
	}
	if err := u.profiles.Create(ctx, profile); err != nil {
		return nil, ErrConflict
	}

	return toManufacturerDTO(profile), nil
}

// Statusは本人の申請状態を返す。
func (u *ManufacturerUsecase) Status(ctx context.Context, userID int64) (*ManufacturerProfileDTO, error) {
	profile, err := u.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, repository.ErrManufacturerProfileNotFound
	}
	return toManufacturerDTO(profile), nil
}

// Approveは管理者による承認。次のリクエストからmanufacturerロールが付く。
func (u *ManufacturerUsecase) Approve(ctx context.Context, adminID int64, userID int64) error {
	if err := u.profiles.UpdateStatus(ctx, userID, model.ManufacturerStatusApproved, adminID); err != nil {
		return err
	}

	u.writeAudit(ctx, adminID, userID, model.AuditActionManufacturerApprove)
	return nil
}

// Revokeは承認の取り消し。次のリクエストからmanufacturerロールが消える。
func (u *ManufacturerUsecase) Revoke(ctx context.Context, adminID int64, userID int64) error {
	if err := u.profiles.UpdateStatus(ctx, userID, model.ManufacturerStatusRevoked, adminID); err != nil {
		return err
	}

	u.writeAudit(ctx, adminID, userID, model.AuditActionManufacturerRevoke)
	return nil
}

func (u *ManufacturerUsecase) writeAudit(ctx context.Context, adminID int64, userID int64, action model.AuditAction) {
	if u.audit == nil {
		return
	}

	_ = u.audit.Create(ctx, model.AuditLog{
		ActorID:      adminID,
		ActorType:    model.AuditResourceAdmin,
		Action:       action,
		ResourceType: model.AuditResourceManufacturer,
		ResourceID:   userID,
		CreatedAt:    time.Now(),
	})
}

func toManufacturerDTO(p *model.ManufacturerProfile) *ManufacturerProfileDTO {
	return &ManufacturerProfileDTO{
		UserID:      p.UserID,
		CompanyName: p.CompanyName,
		Status:      string(p.Status),
	}
}
