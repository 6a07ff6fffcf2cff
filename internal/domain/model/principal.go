package model

// プリンシパル種別。userとadminはテーブルが別なので、
// トークンとコンテキストには必ず種別を持たせる。
type PrincipalType string

const (
	PrincipalTypeUser  PrincipalType = "user"
	PrincipalTypeAdmin PrincipalType = "admin"
)

// ロール。manufacturerは派生エンタイトルメント
// （ManufacturerProfileがAPPROVEDの間だけ付く）。
type Role string

const (
	RoleUser         Role = "user"
	RoleManufacturer Role = "manufacturer"
	RoleAdmin        Role = "admin"
)

// Principalは認証済みの正規化済みアイデンティティ。
// RoleResolverが構築してmiddlewareがcontextに入れる。
// 以後のハンドラはこれだけを見る（tokenのclaimsを直接見ない）。
type Principal struct {
	ID       int64
	Type     PrincipalType
	Roles    []Role
	IsActive bool
}

// HasRoleは解決済みロールにrが含まれるかを返す。
func (p Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}
