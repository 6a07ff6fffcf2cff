package model

import "time"

// ユーザー（一般会員。出品者エンタイトルメントはManufacturerProfile側で判定）。
// リフレッシュトークンの状態は本人の行に持つ（1ユーザー1セッション）。
// 新しいログイン／ローテーションで前のトークンは必ず無効になる。
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	IsActive     bool   `gorm:"not null;default:true"`

	// 現在有効なリフレッシュトークンのsha256ハッシュ。NULLならセッションなし。
	CurrentRefreshTokenHash *string `gorm:"column:current_refresh_token_hash;index"`

	// リフレッシュトークンの失効時刻。
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at"`

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
