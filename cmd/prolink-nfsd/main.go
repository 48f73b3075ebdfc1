package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/server"
	"github.com/konkers/prolink-nfs/pkg/config"
	"github.com/konkers/prolink-nfs/pkg/metrics"
	"github.com/konkers/prolink-nfs/pkg/store"
	"github.com/konkers/prolink-nfs/pkg/store/memory"
)

// seedDemoLibrary fills a fresh memory store with the directory layout
// Pioneer hardware expects to browse, so the server is usable out of
// the box without a real library behind it.
func seedDemoLibrary(ctx context.Context, st store.Store) error {
	dirs := []string{"/PIONEER", "/PIONEER/rekordbox", "/Contents"}
	for _, dir := range dirs {
		if err := st.Mkdir(ctx, dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	files := []struct {
		path    string
		content string
	}{
		{"/PIONEER/rekordbox/export.pdb", "rekordbox export database placeholder\n"},
		{"/Contents/demo-track.mp3", "not actually an mp3\n"},
	}
	for _, f := range files {
		if err := st.Create(ctx, f.path, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", f.path, err)
		}
		if err := st.Write(ctx, f.path, 0, []byte(f.content)); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.DefaultConfigPath()+")")
	initConfig := flag.Bool("init-config", false, "Write a default config file and exit")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	if *initConfig {
		path := *configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.WriteDefault(path); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	if mem, ok := st.(*memory.Store); ok {
		if err := seedDemoLibrary(ctx, mem); err != nil {
			log.Fatalf("Failed to seed demo library: %v", err)
		}
		logger.Info("memory store seeded with demo library")
	}

	rpcMetrics := metrics.NoopRPCMetrics()
	if cfg.Server.Metrics.Enabled {
		metrics.InitRegistry()
		rpcMetrics = metrics.NewRPCMetrics()
		msrv := metrics.NewServer(metrics.ServerConfig{Port: cfg.Server.Metrics.Port})
		go func() {
			if err := msrv.Start(ctx); err != nil {
				logger.Error("metrics server: %v", err)
			}
		}()
	}

	srv := server.New(server.Options{
		Bind:        cfg.Server.Bind,
		PmapPort:    cfg.Server.PmapPort,
		NFSPort:     cfg.Server.NFSPort,
		Export:      cfg.Export.Name,
		MaxInflight: cfg.Server.MaxInflight,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		Metrics:     rpcMetrics,
	}, st)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error("server error: %v", err)
			os.Exit(1)
		}
	}
}
