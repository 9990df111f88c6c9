package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalguard/internal/config"
	"vitalguard/internal/logger"
	"vitalguard/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. load .env when present; the environment may already be set
	envErr := godotenv.Load()

	// 2. load config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 3. init logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "vitalguard")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("Failed to load .env file",
			zap.Error(envErr),
		)
	}

	// 4. create service
	svc, err := service.NewVitalGuardService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create vitalguard service",
			zap.Error(err),
		)
	}

	// 5. metrics endpoint
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed",
					zap.String("addr", cfg.Metrics.Addr),
					zap.Error(err),
				)
			}
		}()
		log.Info("Metrics server listening",
			zap.String("addr", cfg.Metrics.Addr),
		)
	}

	// 6. context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. start service
	if err := svc.Start(ctx); err != nil {
		log.Fatal("Failed to start vitalguard service",
			zap.Error(err),
		)
	}

	// 8. wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received signal, shutting down",
		zap.String("signal", sig.String()),
	)
	cancel()

	// 9. stop everything together
	if err := svc.Stop(); err != nil {
		log.Error("Failed to stop vitalguard service",
			zap.Error(err),
		)
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to stop metrics server",
				zap.Error(err),
			)
		}
	}

	log.Info("Vitalguard service stopped")
}
