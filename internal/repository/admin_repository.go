package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
	"time"
)

var ErrAdminNotFound = errors.New("admin not found")

// 管理者の取得とリフレッシュトークン状態の更新を約束。
// テーブルはユーザーと別だが、セッション状態の扱いは同じ形。
type AdminRepository interface {
	FindByID(ctx context.Context, adminID int64) (*model.Admin, error)
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	Update(ctx context.Context, admin *model.Admin) error

	// リフレッシュトークン状態を1回のUPDATEで差し替える（UserRepositoryと同じ約束）。
	UpdateRefreshState(ctx context.Context, adminID int64, tokenHash *string, expiresAt *time.Time) error
}
