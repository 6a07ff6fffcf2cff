package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrManufacturerProfileNotFound = errors.New("manufacturer profile not found")

// 出品者プロフィールの保存・取得・ステータス変更を約束。
type ManufacturerProfileRepository interface {
	//申請を1件作成（1ユーザー1件）。
	Create(ctx context.Context, profile *model.ManufacturerProfile) error

	//ユーザーIDで1件取得。
	FindByUserID(ctx context.Context, userID int64) (*model.ManufacturerProfile, error)

	//ステータスを変更し、審査した管理者を記録する。
	UpdateStatus(ctx context.Context, userID int64, status model.ManufacturerStatus, reviewedByAdminID int64) error
}
