package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/config"
	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/detect"
	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/logging"
	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/metrics"
	"github.com/bhanuprakashpeddi-1432/Object-detection-WebRTC/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log, err := logging.New(cfg.Development)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	rec := metrics.New()
	svc := detect.NewService(log.Named("detect"), rec, detect.Options{
		ModelPath:     cfg.ModelPath,
		LibraryPath:   cfg.OrtLibrary,
		ConfThreshold: cfg.ConfidenceThreshold,
		NMSThreshold:  cfg.NMSThreshold,
		PoolSize:      cfg.PoolSize,
	})
	svc.Initialize(context.Background())
	defer svc.Close()

	// Frames arrive through a media-collaborator frame source; codec
	// handling lives outside this binary, so no factory is wired here.
	srv := server.New(log.Named("server"), svc, rec, nil)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}
