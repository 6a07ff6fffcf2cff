package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
	"time"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// ユーザーの保存・取得と、リフレッシュトークン状態の更新を約束。
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ユーザー情報の更新=>アクティブかどうか・最後のログイン更新など
	Update(ctx context.Context, user *model.User) error

	// リフレッシュトークン状態を1回のUPDATEで差し替える。
	// tokenHash/expiresAtともnilなら失効（ログアウト）。
	// read-verify-writeを分割しないことでローテーション競合の窓を最小にする。
	UpdateRefreshState(ctx context.Context, userID int64, tokenHash *string, expiresAt *time.Time) error

	// パスワードハッシュの差し替え（パスワード変更）。
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
}
