package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/instagram"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/pipeline"
	"github.com/postpilot/postpilot/internal/pool"
	"github.com/postpilot/postpilot/internal/providers"
	"github.com/postpilot/postpilot/internal/scheduler"
	"github.com/postpilot/postpilot/internal/storage/postgres"
	"github.com/postpilot/postpilot/internal/worker"
)

func main() {
	log.Println("Starting worker...")

	ctx := context.Background()
	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	workerCfg, err := config.LoadWorkerConfig(ctx)
	if err != nil {
		log.Fatal("Failed to load worker config:", err)
	}

	db, err := postgres.ConnectDB(ctx, dbCfg)
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
	credRepo := postgres.NewCredentialRepository(db)

	captioner := providers.NewCaptionClient(os.Getenv("CAPTION_PROVIDER_URL"))
	publisher := instagram.NewClient(credRepo)
	allocator := scheduler.NewAllocator(postRepo, accountRepo)

	engine := pipeline.NewEngine(pipelineRepo,
		pipeline.NewCaptionStep(postRepo, accountRepo, captioner),
		pipeline.NewScheduleStep(postRepo, postRepo, allocator),
		pipeline.NewPublishStep(postRepo, postRepo, publisher, 10*time.Second),
	)

	dispatcher := worker.NewDispatcher(engine)
	workerPool := pool.NewWorkerPool(
		workerCfg.MaxConcurrentJobs,
		jobRepo,
		dispatcher,
		workerCfg.PollInterval,
		workerCfg.LockDuration,
	)

	workerPool.Start()
	log.Printf("Worker pool active (concurrency=%d, poll=%s). Press Ctrl+C to stop.",
		workerCfg.MaxConcurrentJobs, workerCfg.PollInterval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	workerPool.Stop()
	log.Println("Shutdown complete.")
}
