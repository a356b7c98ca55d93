package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/postpilot/postpilot/internal/job"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/pipeline"
	"github.com/postpilot/postpilot/internal/scheduler"
	"github.com/postpilot/postpilot/internal/storage/postgres"
	"github.com/postpilot/postpilot/middleware"
)

func main() {
	log.Println("Starting API...")

	ctx := context.Background()
	cfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := postgres.ConnectDB(ctx, cfg)
	if err != nil {
		log.Fatal("Connection failed:", err)
	}

	if err := postgres.MigrateModels(db,
		&models.Job{}, &models.PipelineRun{}, &models.PipelineStep{},
		&models.ScheduledPost{}, &models.GeneratedPhoto{},
		&models.AccountSettings{}, &models.PlatformCredential{},
	); err != nil {
		log.Fatal("Migration failed:", err)
	}

	jobRepo := postgres.NewJobRepository(db)
	pipelineRepo := postgres.NewPipelineRepository(db)
	postRepo := postgres.NewPostRepository(db)
	accountRepo := postgres.NewAccountRepository(db)

	jobService := job.NewJobService(jobRepo)
	jobHandler := job.NewJobHandler(jobService)

	// The API only creates runs and enqueues their jobs; execution
	// happens in the worker process, so no steps are registered here.
	engine := pipeline.NewEngine(pipelineRepo)
	pipelineHandler := pipeline.NewHandler(engine, jobService)

	allocator := scheduler.NewAllocator(postRepo, accountRepo)
	scheduleHandler := scheduler.NewHandler(allocator)

	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	router.POST("/jobs", jobHandler.Create)
	router.GET("/jobs/stats", jobHandler.Stats)
	router.GET("/jobs/:id", jobHandler.Get)
	router.GET("/jobs", jobHandler.List)

	router.POST("/pipeline/trigger", pipelineHandler.Trigger)
	router.GET("/pipeline/runs/:id", pipelineHandler.Status)
	router.POST("/pipeline/runs/:id/cancel", pipelineHandler.Cancel)

	router.GET("/schedule/next-slot", scheduleHandler.NextSlot)

	addr := ":" + envOr("API_PORT", "8080")
	log.Printf("API listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("Server failed:", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
