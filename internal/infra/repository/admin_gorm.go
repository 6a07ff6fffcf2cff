package repository

import (
	"app/internal/domain/model"
	domainrepo "app/internal/repository"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type adminGormRepository struct {
	db *gorm.DB
}

// GORM実装
func NewAdminGormRepository(db *gorm.DB) domainrepo.AdminRepository {
	return &adminGormRepository{db: db}
}

// IDで管理者を1件取得
func (r *adminGormRepository) FindByID(ctx context.Context, id int64) (*model.Admin, error) {
	var a model.Admin

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&a).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &a, nil
}

// emailで管理者を1件取得
func (r *adminGormRepository) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin

	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&a).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &a, nil
}

// 管理者を更新。
func (r *adminGormRepository) Update(ctx context.Context, admin *model.Admin) error {
	if err := r.db.WithContext(ctx).Save(admin).Error; err != nil {
		return err
	}
	return nil
}

// リフレッシュトークン状態を1回のUPDATEで差し替える（user側と同じ）。
func (r *adminGormRepository) UpdateRefreshState(ctx context.Context, adminID int64, tokenHash *string, expiresAt *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", adminID).
		UpdateColumns(map[string]interface{}{
			"current_refresh_token_hash": tokenHash,
			"refresh_token_expires_at":   expiresAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrAdminNotFound
	}
	return nil
}
