package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/hunterai/recruit-engine/internal/api"
	"github.com/hunterai/recruit-engine/internal/config"
	"github.com/hunterai/recruit-engine/internal/enrich"
	"github.com/hunterai/recruit-engine/internal/feed"
	"github.com/hunterai/recruit-engine/internal/importer"
	"github.com/hunterai/recruit-engine/internal/outreach"
	"github.com/hunterai/recruit-engine/internal/reactor"
	"github.com/hunterai/recruit-engine/internal/repository/postgres"
	"github.com/hunterai/recruit-engine/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	log.Println("Starting recruit-engine...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs import progress tracking. Its absence degrades imports
	// to untracked, it never blocks them.
	var tracker *importer.ProgressTracker
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("WARNING: Redis unavailable, import progress disabled: %v", err)
	} else {
		tracker = importer.NewProgressTracker(redisClient, time.Duration(cfg.Import.ProgressTTLMins)*time.Minute)
		log.Println("Connected to Redis")
	}

	// Optional S3 archive for uploaded CSVs.
	var archive api.FileArchiver
	if cfg.Storage.Enabled {
		store, err := storage.NewArchiveStore(ctx, cfg.Storage)
		if err != nil {
			log.Printf("WARNING: S3 archive unavailable, uploads will not be archived: %v", err)
		} else {
			archive = store
			log.Printf("Upload archive: s3://%s", cfg.Storage.Bucket)
		}
	}

	candidateRepo := postgres.NewCandidateRepo(db)
	projectRepo := postgres.NewProjectRepo(db)

	// Enrichment handler for inserted candidates.
	enrichClient := enrich.NewClient(
		cfg.Enrichment.BaseURL,
		cfg.Enrichment.APIKey,
		time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second,
	)
	enrichHandler := enrich.NewHandler(enrichClient, candidateRepo)

	// Outreach handler for updated candidates.
	transport := outreach.SelectTransport(cfg.Twilio, cfg.Resend)
	messages, err := outreach.NewMessageBuilder("", cfg.App.BaseURL)
	if err != nil {
		log.Fatalf("Failed to build message template: %v", err)
	}
	outreachHandler := outreach.NewHandler(transport, candidateRepo, projectRepo, messages)

	// Change feed and reactor.
	listener, err := feed.NewListener(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to start change feed listener: %v", err)
	}
	listener.Start(ctx)

	react := reactor.New(enrichHandler, outreachHandler)
	reactorDone := make(chan struct{})
	go func() {
		defer close(reactorDone)
		react.Run(ctx, listener.Events())
	}()

	// Import pipeline and HTTP API.
	imp := importer.New(
		candidateRepo,
		tracker,
		cfg.Import.BatchSize,
		time.Duration(cfg.Import.BatchPauseMs)*time.Millisecond,
	)
	handlers := api.NewHandlers(imp, tracker, candidateRepo, projectRepo, archive)
	server := api.NewServer(cfg.Server, handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	go func() {
		log.Printf("API listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	listener.Stop()
	cancel()

	// Let in-flight handlers drain before the process exits.
	select {
	case <-reactorDone:
	case <-time.After(10 * time.Second):
		log.Println("Reactor did not drain in time")
	}

	log.Println("Stopped")
}
