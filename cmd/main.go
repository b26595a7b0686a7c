package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/khmerweb/cms-backend/docs"
	"github.com/khmerweb/cms-backend/internal/config"
	"github.com/khmerweb/cms-backend/internal/handlers"
	"github.com/khmerweb/cms-backend/internal/logger"
	"github.com/khmerweb/cms-backend/internal/middlewares"
	"github.com/khmerweb/cms-backend/internal/repositories"
	"github.com/khmerweb/cms-backend/internal/services"
	"github.com/khmerweb/cms-backend/internal/storage"
)

const maxRequestSize = 50 * 1024 * 1024 // 50MB for file uploads

// @title Khmer Web CMS API
// @version 1.0
// @description Content, asset and localization backend for the Khmer Web CMS

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key protecting all mutating endpoints
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Khmer Web CMS backend")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize storage
	fileStorage := storage.NewLocalStorage(cfg.Upload.BasePath, cfg.Upload.Root)

	// PDF thumbnailing is optional: when pdftocairo is missing the media
	// service is wired without a thumbnailer and rejects PDF uploads.
	var thumbnailer services.ThumbnailDeriver
	if rasterizer, err := storage.NewPopplerRasterizer(cfg.Upload.PdftocairoPath); err != nil {
		logger.Logger.Warn("PDF thumbnailing disabled", zap.Error(err))
	} else {
		thumbnailer = storage.NewThumbnailer(fileStorage, rasterizer)
	}

	// Initialize repositories
	mediaRepo := repositories.NewMediaRepository(db)
	folderRepo := repositories.NewFolderRepository(db)
	postRepo := repositories.NewPostRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)

	// Initialize services
	mediaService := services.NewMediaService(mediaRepo, folderRepo, fileStorage, thumbnailer, logger.Logger)
	resolver := services.NewDocumentResolver(mediaService, logger.Logger)
	postService := services.NewPostService(postRepo, categoryRepo, fileStorage, resolver, logger.Logger)
	categoryService := services.NewCategoryService(categoryRepo)

	// Initialize middleware
	keyAuth := middlewares.APIKeyMiddleware(cfg.APIKey)

	// Initialize handlers
	mediaHandler := handlers.NewMediaHandler(mediaService, logger.Logger)
	postHandler := handlers.NewPostHandler(postService, logger.Logger)
	categoryHandler := handlers.NewCategoryHandler(categoryService, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middlewares.RequestIDMiddleware)
	r.Use(middlewares.LoggerMiddleware(logger.Logger))
	r.Use(middlewares.RecoveryMiddleware(logger.Logger))
	r.Use(middlewares.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middlewares.RequestSizeLimitMiddleware(maxRequestSize))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Stored files are served straight off the upload root
	uploadsDir := http.Dir(filepath.Join(cfg.Upload.BasePath, cfg.Upload.Root))
	r.Handle("/"+cfg.Upload.Root+"/*",
		http.StripPrefix("/"+cfg.Upload.Root+"/", http.FileServer(uploadsDir)))

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		mediaHandler.RegisterRoutes(r, keyAuth)
		postHandler.RegisterRoutes(r, keyAuth)
		categoryHandler.RegisterRoutes(r, keyAuth)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second, // Longer timeout for file uploads
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "cms_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
