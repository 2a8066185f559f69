package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"cutmind/internal/common/config"
	"cutmind/internal/common/middleware"
	"cutmind/internal/engine/handlers"
	"cutmind/internal/engine/pipeline"
	"cutmind/internal/pattern/repository"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// CUTMIND Pattern Engine Service
// ============================================================

func main() {
	cfg := config.Load()

	db, err := repository.OpenSQLite(cfg.PatternDBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background()); err != nil {
		log.Fatalf("init pattern store: %v", err)
	}

	handler := handlers.New(repo, pipeline.New())

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "CUTMIND Pattern Engine",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handler.ReadinessProbe)

	// ============================================================
	// API Routes
	// ============================================================

	app.Post("/interpret", handler.Interpret)
	app.Post("/apply-rules", handler.ApplyRules)
	app.Get("/patterns", handler.ListPatterns)
	app.Get("/patterns/:id", handler.GetPattern)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting CUTMIND Pattern Engine on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
