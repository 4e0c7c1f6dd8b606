package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/studystream/study-stream/internal/api"
	"github.com/studystream/study-stream/internal/blob"
	"github.com/studystream/study-stream/internal/config"
	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/server"
	"github.com/studystream/study-stream/internal/stats"
	"github.com/studystream/study-stream/internal/summary"
)

func main() {
	logger := log.New(os.Stderr, "[study-stream] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config:", err)
	}

	if err := runMigrations(cfg); err != nil {
		logger.Fatal("migrate:", err)
	}

	db, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, db, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	summarizer := summary.NewOpenRouterClient(cfg.SummaryAPIURL, cfg.SummaryAPIKey, cfg.SummaryModel)
	pipeline := summary.NewPipeline(logger, db, summarizer, statsUpdater)

	blobStore, err := blob.NewDiskStore(logger, cfg.UploadDir, cfg.BaseURL)
	if err != nil {
		logger.Fatal("blob store:", err)
	}

	srv := api.NewChatApp(mux, logger, chatServer, db, pipeline, blobStore, blobStore.Dir(), cfg)

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
