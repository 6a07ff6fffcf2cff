package model

import "time"

// 出品者申請のステータス。
type ManufacturerStatus string

const (
	ManufacturerStatusPending  ManufacturerStatus = "PENDING"
	ManufacturerStatusApproved ManufacturerStatus = "APPROVED"
	ManufacturerStatusRejected ManufacturerStatus = "REJECTED"
	ManufacturerStatusRevoked  ManufacturerStatus = "REVOKED"
)

// 出品者プロフィール（1ユーザー1件）。
// manufacturerロールはこのレコードがAPPROVEDの間だけ有効。
// トークンにキャッシュせず、毎リクエストここを見て判定する。
type ManufacturerProfile struct {
	ID          int64              `gorm:"primaryKey;autoIncrement"`
	UserID      int64              `gorm:"not null;uniqueIndex"`
	CompanyName string             `gorm:"type:varchar(255);not null"`
	Status      ManufacturerStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`

	// 最後にステータスを変えた管理者。
	ReviewedByAdminID *int64
	ReviewedAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
