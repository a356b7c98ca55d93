package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type WorkerConfig struct {
	PollInterval      time.Duration `env:"WORKER_POLL_INTERVAL,default=5s"`
	MaxConcurrentJobs int           `env:"WORKER_MAX_CONCURRENT_JOBS,default=1"`
	LockDuration      time.Duration `env:"WORKER_LOCK_DURATION,default=1m"`
}

func LoadWorkerConfig(ctx context.Context) (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process worker config: %w", err)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	if cfg.MaxConcurrentJobs < 1 {
		return nil, fmt.Errorf("WORKER_MAX_CONCURRENT_JOBS must be at least 1")
	}
	if cfg.LockDuration <= 0 {
		return nil, fmt.Errorf("WORKER_LOCK_DURATION must be positive")
	}

	return &cfg, nil
}
