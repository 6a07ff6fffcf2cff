package usecase

import (
	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"

	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//401 email/passwordのどちらが違うかは明かさない
	ErrInvalidCredentials = errors.New("invalid credentials")
	//401 停止済みアカウント
	ErrInactiveAccount = errors.New("inactive account")
	//401 リフレッシュトークンが渡ってこない
	ErrNoToken = errors.New("no token")
	//401 署名は正しいがローテーション済み・失効済み
	ErrSessionRevoked = errors.New("session revoked")
	//401 トークンが指すプリンシパルがもういない
	ErrPrincipalNotFound = errors.New("principal not found")
	//403 ロール不足
	ErrInsufficientRole = errors.New("insufficient role")
	//競合
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateChangePassword(ctx context.Context, oldPassword string, newPassword string) error
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

type AccessTokenDTO struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO        `json:"user"`
	Token AccessTokenDTO `json:"token"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// ログイン成功時にhandlerへ渡す一式。
// リフレッシュトークンの平文はcookieに入れるためにだけ返す（bodyには載せない）。
type LoginResult struct {
	Body              AuthLoginResponse
	RefreshTokenPlain string
	RefreshExpiresAt  time.Time
}

type RefreshResult struct {
	Body              AccessTokenDTO
	RefreshTokenPlain string
	RefreshExpiresAt  time.Time
}

// AuthUsecaseがセッションのライフサイクルを一手に持つ。
// 発行・ローテーション・失効の状態はすべてプリンシパルの行にあり、
// このstruct自体は状態を持たない（リクエスト間で共有してよい）。
type AuthUsecase struct {
	codec         *token.Codec
	users         repository.UserRepository
	admins        repository.AdminRepository
	manufacturers repository.ManufacturerProfileRepository
	audit         repository.AuditLogRepository
	resolver      *RoleResolver
	validator     AuthValidator
	bcryptCost    int
}

func NewAuthUsecase(
	codec *token.Codec,
	users repository.UserRepository,
	admins repository.AdminRepository,
	manufacturers repository.ManufacturerProfileRepository,
	audit repository.AuditLogRepository,
	resolver *RoleResolver,
	validator AuthValidator,
	bcryptCost int,
) *AuthUsecase {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthUsecase{
		codec:         codec,
		users:         users,
		admins:        admins,
		manufacturers: manufacturers,
		audit:         audit,
		resolver:      resolver,
		validator:     validator,
		bcryptCost:    bcryptCost,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), u.bcryptCost)
	if err != nil {
		return nil, ErrInternal
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(pwHash),
		IsActive:     true,
	}

	//保存（email重複はvalidator/DB制約で弾く）
	if err := u.users.Create(ctx, user); err != nil {
		return nil, ErrConflict
	}

	return &AuthRegisterResponse{
		User: toUserDTO(user),
	}, nil
}

// Loginはユーザーのログイン。
func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*LoginResult, error) {
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//ユーザー取得。いない場合もパスワード不一致と同じエラーにする
	user, err := u.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	//パスワード照合（bcrypt、定数時間比較）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	result, err := u.openSession(ctx, model.PrincipalTypeUser, user.ID)
	if err != nil {
		return nil, err
	}

	//last_login更新（失敗してもログインは成立させる）
	now := time.Now()
	user.LastLoginAt = &now
	_ = u.users.Update(ctx, user)

	result.Body.User = toUserDTO(user)
	return result, nil
}

// AdminLoginは管理者のログイン。流れはLoginと同じでテーブルだけ違う。
func (u *AuthUsecase) AdminLogin(ctx context.Context, req AuthLoginRequest) (*LoginResult, error) {
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	admin, err := u.admins.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}

	if !admin.IsActive {
		return nil, ErrInactiveAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	result, err := u.openSession(ctx, model.PrincipalTypeAdmin, admin.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	admin.LastLoginAt = &now
	_ = u.admins.Update(ctx, admin)

	result.Body.User = UserDTO{ID: admin.ID, Email: admin.Email, IsActive: admin.IsActive}
	return result, nil
}

// openSessionはアクセス＋リフレッシュのペアを発行して
// リフレッシュ状態を1回のUPDATEで保存する。前のセッションはここで必ず消える。
func (u *AuthUsecase) openSession(ctx context.Context, ptype model.PrincipalType, id int64) (*LoginResult, error) {
	//ロールのスナップショット（アクセストークンに載せるだけ。認可はResolver）
	principal, err := u.resolver.Resolve(ctx, ptype, id)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := u.codec.IssueAccess(id, ptype, principal.Roles)
	if err != nil {
		return nil, ErrInternal
	}

	refresh, refreshExp, err := u.codec.IssueRefresh(id, ptype)
	if err != nil {
		return nil, ErrInternal
	}

	hash := hashToken(refresh)
	if err := u.updateRefreshState(ctx, ptype, id, &hash, &refreshExp); err != nil {
		return nil, err
	}

	u.writeAudit(ctx, ptype, id, model.AuditActionLogin)

	return &LoginResult{
		Body: AuthLoginResponse{
			Token: AccessTokenDTO{
				AccessToken: access,
				ExpiresIn:   int(time.Until(accessExp).Seconds()),
			},
		},
		RefreshTokenPlain: refresh,
		RefreshExpiresAt:  refreshExp,
	}, nil
}

// Refreshは検証済みリフレッシュトークンをローテーションして新しいペアを返す。
// 使い終わったトークンは（expが残っていても）二度と使えない。
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string) (*RefreshResult, error) {
	if refreshTokenPlain == "" {
		return nil, ErrNoToken
	}

	//署名・期限・種別の検証。token.ErrExpired / ErrMalformedはそのまま上へ
	claims, err := u.codec.Verify(refreshTokenPlain, token.KindRefresh)
	if err != nil {
		return nil, err
	}

	id, err := claims.PrincipalID()
	if err != nil {
		return nil, token.ErrMalformed
	}
	ptype := claims.PrincipalType

	//保存済みハッシュと突き合わせる。
	//署名が正しくてもローテーション済みならここで落ちる
	storedHash, storedExp, active, err := u.loadRefreshState(ctx, ptype, id)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	if !active {
		return nil, ErrSessionRevoked
	}
	if storedHash == nil || storedExp == nil || !storedExp.After(time.Now()) {
		return nil, ErrSessionRevoked
	}
	if hashToken(refreshTokenPlain) != *storedHash {
		return nil, ErrSessionRevoked
	}

	//ローテーション：新ペア発行＋1回のUPDATEで上書き（旧トークンは永久に無効）
	principal, err := u.resolver.Resolve(ctx, ptype, id)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := u.codec.IssueAccess(id, ptype, principal.Roles)
	if err != nil {
		return nil, ErrInternal
	}
	newRefresh, newRefreshExp, err := u.codec.IssueRefresh(id, ptype)
	if err != nil {
		return nil, ErrInternal
	}

	newHash := hashToken(newRefresh)
	if err := u.updateRefreshState(ctx, ptype, id, &newHash, &newRefreshExp); err != nil {
		return nil, err
	}

	u.writeAudit(ctx, ptype, id, model.AuditActionRefresh)

	return &RefreshResult{
		Body: AccessTokenDTO{
			AccessToken: access,
			ExpiresIn:   int(time.Until(accessExp).Seconds()),
		},
		RefreshTokenPlain: newRefresh,
		RefreshExpiresAt:  newRefreshExp,
	}, nil
}

// Logoutはリフレッシュ状態をNULLに戻す。すでにNULLでも成功（冪等）。
func (u *AuthUsecase) Logout(ctx context.Context, ptype model.PrincipalType, id int64) (*SuccessResponse, error) {
	if err := u.updateRefreshState(ctx, ptype, id, nil, nil); err != nil {
		//対象がいない＝消すものがない。冪等なので成功扱い
		if !errors.Is(err, repository.ErrUserNotFound) && !errors.Is(err, repository.ErrAdminNotFound) {
			return nil, err
		}
	}

	u.writeAudit(ctx, ptype, id, model.AuditActionLogout)

	return &SuccessResponse{Message: "logout success"}, nil
}

// RevokeAllSessionsはパスワード変更などから呼ばれる全セッション失効。
// 実体はLogoutと同じ（セッションは常に1つ）だが監査ログを分ける。
func (u *AuthUsecase) RevokeAllSessions(ctx context.Context, ptype model.PrincipalType, id int64) error {
	if err := u.updateRefreshState(ctx, ptype, id, nil, nil); err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) && !errors.Is(err, repository.ErrAdminNotFound) {
			return err
		}
	}

	u.writeAudit(ctx, ptype, id, model.AuditActionRevokeAll)
	return nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordはパスワードを差し替えたうえで全セッションを失効させる。
// 盗まれたリフレッシュトークンもここで確実に死ぬ。
func (u *AuthUsecase) ChangePassword(ctx context.Context, ptype model.PrincipalType, id int64, req ChangePasswordRequest) (*SuccessResponse, error) {
	if err := u.validator.ValidateChangePassword(ctx, req.OldPassword, req.NewPassword); err != nil {
		return nil, err
	}

	currentHash, err := u.loadPasswordHash(ctx, ptype, id)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.OldPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), u.bcryptCost)
	if err != nil {
		return nil, ErrInternal
	}

	if err := u.updatePasswordHash(ctx, ptype, id, string(newHash)); err != nil {
		return nil, err
	}

	if err := u.RevokeAllSessions(ctx, ptype, id); err != nil {
		return nil, err
	}

	u.writeAudit(ctx, ptype, id, model.AuditActionPasswordChange)

	return &SuccessResponse{Message: "password changed"}, nil
}

// ----- 種別で振り分ける内部ヘルパー -----

func (u *AuthUsecase) updateRefreshState(ctx context.Context, ptype model.PrincipalType, id int64, hash *string, exp *time.Time) error {
	if ptype == model.PrincipalTypeAdmin {
		return u.admins.UpdateRefreshState(ctx, id, hash, exp)
	}
	return u.users.UpdateRefreshState(ctx, id, hash, exp)
}

func (u *AuthUsecase) loadRefreshState(ctx context.Context, ptype model.PrincipalType, id int64) (hash *string, exp *time.Time, active bool, err error) {
	if ptype == model.PrincipalTypeAdmin {
		admin, err := u.admins.FindByID(ctx, id)
		if err != nil {
			return nil, nil, false, err
		}
		if admin == nil {
			return nil, nil, false, ErrPrincipalNotFound
		}
		return admin.CurrentRefreshTokenHash, admin.RefreshTokenExpiresAt, admin.IsActive, nil
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, nil, false, err
	}
	if user == nil {
		return nil, nil, false, ErrPrincipalNotFound
	}
	return user.CurrentRefreshTokenHash, user.RefreshTokenExpiresAt, user.IsActive, nil
}

func (u *AuthUsecase) loadPasswordHash(ctx context.Context, ptype model.PrincipalType, id int64) (string, error) {
	if ptype == model.PrincipalTypeAdmin {
		admin, err := u.admins.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		if admin == nil {
			return "", ErrPrincipalNotFound
		}
		return admin.PasswordHash, nil
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrPrincipalNotFound
	}
	return user.PasswordHash, nil
}

func (u *AuthUsecase) updatePasswordHash(ctx context.Context, ptype model.PrincipalType, id int64, newHash string) error {
	if ptype == model.PrincipalTypeAdmin {
		admin, err := u.admins.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if admin == nil {
			return ErrPrincipalNotFound
		}
		admin.PasswordHash = newHash
		return u.admins.Update(ctx, admin)
	}
	return u.users.UpdatePasswordHash(ctx, id, newHash)
}

// 監査ログはbest-effort。失敗してもリクエストは落とさない。
func (u *AuthUsecase) writeAudit(ctx context.Context, ptype model.PrincipalType, id int64, action model.AuditAction) {
	if u.audit == nil {
		return
	}

	resource := model.AuditResourceUser
	if ptype == model.PrincipalTypeAdmin {
		resource = model.AuditResourceAdmin
	}

	_ = u.audit.Create(ctx, model.AuditLog{
		ActorID:      id,
		ActorType:    resource,
		Action:       action,
		ResourceType: resource,
		ResourceID:   id,
		CreatedAt:    time.Now(),
	})
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		IsActive: u.IsActive,
	}
}

// リフレッシュトークンはDBには平文で置かずsha256ハッシュで持つ。
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
