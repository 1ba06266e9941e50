package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/events"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "print the results published to redis as JSON lines",
	RunE:  doTail,
}

func doTail(cmd *cobra.Command, _ []string) error {
	if cfg.Events.RedisAddr == "" {
		return errors.New("events.redis_addr is not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectRedis(ctx, cfg.Events.RedisAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	return events.Listen(ctx, client, cfg.Events.RedisChannel, func(ev pingwatch.Event) {
		enc.Encode(ev)
	})
}
