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

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/config"
	"github.com/digineo/pingwatch/events"
	"github.com/digineo/pingwatch/httpapi"
	"github.com/digineo/pingwatch/internal/redisconn"
	"github.com/digineo/pingwatch/monitor"
	"github.com/digineo/pingwatch/ping"
	"github.com/digineo/pingwatch/settings"
)

const shutdownTimeout = 10 * time.Second

var _ pingwatch.Prober = (*ping.Pinger)(nil)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the stored hosts and serve the HTTP API",
	RunE:  doServe,
}

func doServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pinger, err := ping.New(cfg.Bind4, cfg.Bind6, cfg.Privileged)
	if err != nil {
		return fmt.Errorf("failed to open ICMP sockets: %w", err)
	}
	defer pinger.Close()
	pinger.Timeout = cfg.Timeout

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	stats := monitor.New(cfg.HistorySize)
	hub := events.NewHub(cfg.Events.Buffer)
	sinks := pingwatch.Tee{stats, hub}

	var publisher *events.Publisher
	if cfg.Events.RedisAddr != "" {
		client, err := connectRedis(ctx, cfg.Events.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		publisher = events.NewPublisher(client, cfg.Events.RedisChannel, cfg.Events.Buffer)
		publisher.Logger = log.WithPrefix(logger, "component", "publisher")
		sinks = append(sinks, publisher)
	}

	// loops are stopped by Close, not by the signal
	supCtx, cancelSup := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSup()

	sup := pingwatch.New(supCtx, pinger, sinks)
	sup.Interval = cfg.Interval
	sup.StopTimeout = cfg.StopTimeout
	sup.PayloadSize = cfg.PayloadSize
	sup.Logger = log.WithPrefix(logger, "component", "supervisor")

	ctrl := newController(sup, store, stats, logger)
	if err := ctrl.boot(ctx); err != nil {
		return err
	}

	e := httpapi.New(httpapi.NewServer(ctrl, stats, hub, logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		level.Info(logger).Log("msg", "starting HTTP server", "addr", cfg.Listen)
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		level.Info(logger).Log("msg", "shutting down")

		// ends the event streams, Shutdown would wait for them
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			level.Error(logger).Log("msg", "error during server shutdown", "err", err)
		}

		if err := sup.Close(); err != nil {
			level.Warn(logger).Log("msg", "not all probe loops stopped cleanly", "err", err)
		}
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (settings.Store, error) {
	switch cfg.Settings.Backend {
	case config.BackendRedis:
		client, err := connectRedis(ctx, cfg.Settings.RedisAddr)
		if err != nil {
			return nil, err
		}
		return settings.NewRedisStore(client, cfg.Settings.RedisKey), nil
	default:
		return settings.NewFileStore(cfg.Settings.Path), nil
	}
}

func connectRedis(ctx context.Context, addr string) (redis.UniversalClient, error) {
	client, err := redisconn.New(addr)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisconn.Ping(pingCtx, client); err != nil {
		client.Close()
		return nil, err
	}

	level.Info(logger).Log("msg", "connected to redis")
	return client, nil
}
