package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docspace/backend/internal/config"
	"github.com/docspace/backend/internal/database"
	"github.com/docspace/backend/internal/handlers"
	"github.com/docspace/backend/internal/middleware"
	"github.com/docspace/backend/internal/services"
	"github.com/docspace/backend/internal/storage"
	"github.com/docspace/backend/pkg/logger"
	"github.com/docspace/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	blobStore, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := blobStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	catalog := services.NewCatalog(db, blobStore)
	shareRegistry := services.NewShareRegistry(db, blobStore, cfg.Share.DefaultTTL, cfg.MinIO.URLValidity)

	authHandler := handlers.NewAuthHandler(db)
	filesHandler := handlers.NewFilesHandler(catalog, cfg.Upload.MaxFilesPerRequest, cfg.MinIO.URLValidity)
	foldersHandler := handlers.NewFoldersHandler(catalog)
	sharesHandler := handlers.NewSharesHandler(shareRegistry, cfg.Server.PublicURL)
	adminHandler := handlers.NewAdminHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: cfg.Upload.BodyLimitBytes})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	authRoutes := app.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/guest", authHandler.Guest)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", authMiddleware.RequireIdentity, authHandler.Me)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	app.Get("/share/:token", sharesHandler.Resolve)

	api := app.Group("/api", authMiddleware.RequireAuth)
	api.Post("/upload", filesHandler.Upload)
	api.Get("/files", filesHandler.List)
	api.Get("/files/:id/download", filesHandler.Download)
	api.Post("/files/:id/share", sharesHandler.ShareFile)
	api.Delete("/files/:id", filesHandler.Delete)
	api.Post("/files/bulk-delete", filesHandler.BulkDelete)

	api.Post("/folders", foldersHandler.Create)
	api.Get("/folders", foldersHandler.List)
	api.Get("/folders/:id", foldersHandler.Get)
	api.Delete("/folders/:id", foldersHandler.Delete)

	adminRoutes := api.Group("/admin", middleware.AdminOnly)
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Patch("/users/:id", adminHandler.UpdateUser)
	adminRoutes.Get("/files", adminHandler.ListFiles)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
