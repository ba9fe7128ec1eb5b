package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-act-advisor-be/internal/bootstrap"
	"ai-act-advisor-be/internal/config"
	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/internal/server"
	"ai-act-advisor-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	// 3. Logger
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 4. Model providers
	providers, err := bootstrap.NewProviders(cfg, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	defer providers.Close()

	// 5+6. Load the regulation and build the passage index; no index, no service
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	idx, err := bootstrap.BuildIndex(ctx, cfg, providers.Embedder, sysLogger)
	if err != nil {
		sysLogger.Error("BOOTSTRAP", "Index build failed", map[string]interface{}{"error": err.Error()})
		log.Fatalf("[FATAL] %v", err)
	}
	log.Printf("[INFO] Passage index ready: %d chunks in %s", idx.Len(), time.Since(start).Round(time.Millisecond))

	// 7. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg, sysLogger, providers, idx)
	defer container.Close()

	// 8. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("[WARN] Event forwarder not started: %v", err)
	}

	// 9. Run Server until a signal arrives
	srv := server.New(cfg, container)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("[ERROR] Server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Println("[INFO] Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("[ERROR] Shutdown: %v", err)
		}
	}
}
