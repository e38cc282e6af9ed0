package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/23F3003943/student-api-server/internal/api"
	"github.com/23F3003943/student-api-server/internal/config"
	"github.com/23F3003943/student-api-server/internal/db"
	"github.com/23F3003943/student-api-server/pkg/github"
	"github.com/23F3003943/student-api-server/pkg/history"
	"github.com/23F3003943/student-api-server/pkg/pipeline"
	"github.com/23F3003943/student-api-server/pkg/queue"
	"github.com/23F3003943/student-api-server/pkg/task"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	tasks := task.NewPgStore(pool)
	hist := history.NewPgStore(pool)

	// Ensure tables exist
	if err := tasks.EnsureTable(ctx); err != nil {
		log.Fatalf("ensure tasks table: %v", err)
	}
	if err := hist.EnsureTable(ctx); err != nil {
		log.Fatalf("ensure task_history table: %v", err)
	}

	if cfg.GitHubToken == "" {
		log.Println("no GITHUB_TOKEN configured, repository provisioning will be skipped")
	}
	host := github.NewClient(cfg.GitHubToken)
	pusher := &github.Pusher{Token: cfg.GitHubToken}

	executor := pipeline.New(tasks, hist, host, pusher, nil)
	jobs := queue.NewChanQueue(cfg.QueueSize)
	workers := queue.NewPool(jobs, cfg.Workers, executor.Run)
	go workers.Run(ctx)

	server := api.New(tasks, hist, jobs, cfg.ExpectedSecret)

	log.Printf("student-api-server listening on :%s (%d workers)", cfg.Port, cfg.Workers)
	if err := http.ListenAndServe(":"+cfg.Port, server); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
