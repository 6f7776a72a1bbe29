package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/crashalert/backend/internal/client"
	"github.com/crashalert/backend/internal/config"
	"github.com/crashalert/backend/internal/db"
	"github.com/crashalert/backend/internal/handler"
	"github.com/crashalert/backend/internal/model"
	"github.com/crashalert/backend/internal/service"
	"github.com/crashalert/backend/internal/ws"
)

func main() {
	// .env가 없으면 환경변수만 사용
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx)
	if err != nil {
		log.Fatalf("[Main] Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	store := &db.Postgres{Pool: pool}
	if err := store.EnsureAuthSchema(ctx); err != nil {
		log.Fatalf("[Main] Failed to ensure auth schema: %v", err)
	}
	if err := store.EnsureCameraSchema(ctx); err != nil {
		log.Fatalf("[Main] Failed to ensure camera schema: %v", err)
	}
	if err := store.EnsureAccidentSchema(ctx); err != nil {
		log.Fatalf("[Main] Failed to ensure accident schema: %v", err)
	}

	registry := ws.NewRegistry()

	authService, err := service.NewAuthService(store, store, registry, service.NewBcryptVerifier(), cfg.Auth)
	if err != nil {
		log.Fatalf("[Main] Invalid auth configuration: %v", err)
	}
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.AdminEmail); err != nil {
		log.Fatalf("[Main] Failed to ensure admin account: %v", err)
	}

	emailClient := client.NewEmailClient(cfg.Email.RelayURL, cfg.Email.APIKey, cfg.Email.FromAddress)
	mailer := service.NewMailerService(emailClient, cfg.Auth.AdminEmail)

	authz := service.NewAuthzResolver(store)
	broadcaster := service.NewBroadcaster(authz, registry)
	accidentService := service.NewAccidentService(store, authz, broadcaster, mailer)
	cameraService := service.NewCameraService(store)

	allowedOrigins := strings.Split(cfg.Server.AllowedOrigins, ",")

	authHandler := handler.NewAuthHandler(authService, cameraService, mailer)
	accidentHandler := handler.NewAccidentHandler(accidentService)
	cameraHandler := handler.NewCameraHandler(cameraService)
	wsHandler := ws.NewHandler(registry, authService, store, allowedOrigins)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(allowedOrigins, true))

	router.GET("/ping", handler.Ping)
	router.GET("/", handler.Root)
	router.GET("/ws", wsHandler.Serve)

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/forgot-password", authHandler.ForgotPassword)

		auth.GET("/me", handler.AuthMiddleware(authService), authHandler.Me)
		auth.POST("/register",
			handler.AuthMiddleware(authService),
			handler.RequireRole(model.RoleAdmin),
			authHandler.Register)
	}

	accidents := api.Group("/accidents", handler.AuthMiddleware(authService))
	{
		accidents.GET("/active", accidentHandler.GetActiveAccidents)
		accidents.GET("/handled", accidentHandler.GetHandledAccidents)
		accidents.GET("/:id", accidentHandler.GetAccident)
		accidents.POST("/status", accidentHandler.ChangeStatus)
	}

	cameras := api.Group("/cameras", handler.AuthMiddleware(authService))
	{
		cameras.GET("/:cameraId", cameraHandler.GetCamera)
		cameras.POST("", handler.RequireRole(model.RoleAdmin), cameraHandler.CreateCamera)
		cameras.POST("/assign", handler.RequireRole(model.RoleAdmin), cameraHandler.AssignCameras)
	}

	// ML 감지 서비스 전용 (X-Internal-Secret)
	internal := api.Group("/internal", handler.InternalSecretMiddleware(cfg.Server.InternalSecret))
	{
		internal.POST("/accidents", accidentHandler.CreateAccident)
	}

	log.Printf("[Main] Listening on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("[Main] Server stopped: %v", err)
	}
}
