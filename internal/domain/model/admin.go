package model

import "time"

// 管理者。ユーザーとはテーブルを分けるが、
// セッション状態の持ち方はUserと同じ形に揃える。
type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	IsActive     bool   `gorm:"not null;default:true"`

	CurrentRefreshTokenHash *string    `gorm:"column:current_refresh_token_hash;index"`
	RefreshTokenExpiresAt   *time.Time `gorm:"column:refresh_token_expires_at"`

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
