package main

import (
	"log"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/middleware"
	"app/internal/server"
	"app/internal/token"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無くてもよい（本番は環境変数直渡し）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Admin{},
		&model.ManufacturerProfile{},
		&model.Product{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	adminRepo := infraRepo.NewAdminGormRepository(gormDB)
	manufacturerRepo := infraRepo.NewManufacturerGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)

	//トークンcodec（access/refreshで別シークレット）
	codec := token.NewCodec(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	//ロール解決はリクエストごとにDBを読む
	resolver := usecase.NewRoleResolver(userRepo, adminRepo, manufacturerRepo)

	//Usecase生成
	authValidator := validator.NewAuthValidator(userRepo)
	authUC := usecase.NewAuthUsecase(
		codec,
		userRepo,
		adminRepo,
		manufacturerRepo,
		auditRepo,
		resolver,
		authValidator,
		cfg.BcryptCost,
	)
	manufacturerUC := usecase.NewManufacturerUsecase(manufacturerRepo, auditRepo)
	adminUC := usecase.NewAdminUsecase(userRepo, auditRepo, authUC)
	productUC := usecase.NewProductUsecase(productRepo)

	//認証ガード
	authGuard := middleware.NewAuthenticator(codec, resolver)

	//ログインレートリミット（redisが無ければ素通し）
	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if redisClient == nil && cfg.RedisAddr != "" {
		log.Printf("redis unreachable at %s, login rate limit disabled", cfg.RedisAddr)
	}
	loginLimiter := middleware.LoginRateLimiter(redisClient, cfg.LoginRateLimit, cfg.LoginRateWindow)

	//Handler生成
	authH := handler.NewAuthHandler(authUC, authGuard, loginLimiter, cfg.CookieSecure)
	manufacturerH := handler.NewManufacturerHandler(manufacturerUC, authGuard)
	adminH := handler.NewAdminUserHandler(adminUC, authGuard)
	productH := handler.NewProductHandler(productUC, authGuard)

	//Server起動
	e := server.New(cfg, authH, manufacturerH, adminH, productH)
	if err := server.Start(e, cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
