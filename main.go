package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pliu/medianmon/pkg/clients"
	"github.com/pliu/medianmon/pkg/config"
	"github.com/pliu/medianmon/pkg/feed"
	"github.com/pliu/medianmon/pkg/metrics"
)

var (
	debug       = flag.Bool("debug", false, "Enable debug logging")
	metricsPort = flag.Int("metrics.port", 2112, "Port for the Prometheus metrics server")
	configPath  = flag.String("config.path", "config.yaml", "Path to the configuration file")
	createTopic = flag.Bool("topic.create", true, "Create the input topic if it does not exist")
)

func main() {
	flag.Parse()

	log.DefaultLogger = log.Logger{
		Caller:     1,
		TimeFormat: "2006-01-02 15:04:05",
	}

	if *debug {
		log.DefaultLogger.Level = log.DebugLevel
		log.Debug().Msg("Debug logging enabled")
	}

	log.Info().Msgf("Using config file: %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	if *createTopic {
		if err := ensureTopic(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure input topic")
		}
	}

	metrics.Init()

	f, err := feed.NewFeederFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create feeder instance")
	}
	go func() {
		f.Start(ctx)
		// A closed client ends the feed; take the process down with it.
		cancel()
	}()

	// Setup Prometheus metrics server
	addr := fmt.Sprintf(":%d", *metricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Info().Msgf("Starting Prometheus metrics server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Prometheus metrics server failed")
		}
	}()

	log.Info().Msg("medianmon started")
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("medianmon stopped")
}

func ensureTopic(ctx context.Context, cfg *config.Config) error {
	adm, closeAdm, err := clients.GetAdminClient(cfg)
	if err != nil {
		return err
	}
	defer closeAdm()

	timeoutCtx, timeoutCancel := context.WithTimeout(ctx, 1*time.Minute)
	defer timeoutCancel()
	return feed.EnsureTopic(timeoutCtx, adm, cfg.Topic, cfg.GetTopicPartitions(), cfg.GetReplicationFactor())
}
