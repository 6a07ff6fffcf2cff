package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type manufacturerGormRepository struct {
	db *gorm.DB
}

func NewManufacturerGormRepository(db *gorm.DB) repo.ManufacturerProfileRepository {
	return &manufacturerGormRepository{db: db}
}

// 申請を1件作成。
func (r *manufacturerGormRepository) Create(ctx context.Context, profile *model.ManufacturerProfile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return err
	}
	return nil
}

// ユーザーIDで1件取得。
func (r *manufacturerGormRepository) FindByUserID(ctx context.Context, userID int64) (*model.ManufacturerProfile, error) {
	var p model.ManufacturerProfile

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

// ステータスを変更して審査者を記録する。
func (r *manufacturerGormRepository) UpdateStatus(ctx context.Context, userID int64, status model.ManufacturerStatus, reviewedByAdminID int64) error {
	now := time.Now()

	res := r.db.WithContext(ctx).
		Model(&model.ManufacturerProfile{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"status":               status,
			"reviewed_by_admin_id": reviewedByAdminID,
			"reviewed_at":          &now,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrManufacturerProfileNotFound
	}
	return nil
}
