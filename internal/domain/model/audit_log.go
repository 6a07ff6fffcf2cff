package model

import "time"

// 認証まわりの操作種別。
type AuditAction string

const (
	//ログイン成功。
	AuditActionLogin AuditAction = "LOGIN"
	//リフレッシュトークンのローテーション。
	AuditActionRefresh AuditAction = "REFRESH"
	//ログアウト（セッション破棄）。
	AuditActionLogout AuditAction = "LOGOUT"
	//全セッション失効（強制ログアウト・凍結など）。
	AuditActionRevokeAll AuditAction = "REVOKE_ALL"
	//パスワード変更。
	AuditActionPasswordChange AuditAction = "PASSWORD_CHANGE"
	//出品者承認。
	AuditActionManufacturerApprove AuditAction = "MANUFACTURER_APPROVE"
	//出品者承認の取り消し。
	AuditActionManufacturerRevoke AuditAction = "MANUFACTURER_REVOKE"
)

// 何に対する操作か
type AuditResourceType string

const (
	//ユーザーに対する操作。
	AuditResourceUser AuditResourceType = "user"

	//管理者に対する操作。
	AuditResourceAdmin AuditResourceType = "admin"

	//出品者プロフィールに対する操作。
	AuditResourceManufacturer AuditResourceType = "manufacturer_profile"
)

// 監査ログ。「誰が」「何を」「どの対象に」行ったかを残す。
// トークン本体やハッシュ値は絶対に書かない。
type AuditLog struct {
	//主キー（uuid文字列）。
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	//操作した本人（user or admin）のID。
	ActorID int64 `gorm:"not null;index" json:"actor_id"`

	//操作した本人の種別（user / admin）。
	ActorType AuditResourceType `gorm:"type:varchar(50);not null" json:"actor_type"`

	//Actionは操作の種類（LOGIN / REFRESH / LOGOUT など）。
	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	//対象の種類。
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//対象のID。
	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//作成時刻
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
