package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/monitor"
	"github.com/digineo/pingwatch/ping"
)

func main() {
	var size, history uint
	var privileged bool

	pingInterval := time.Duration(5) * time.Second
	pingTimeout := time.Duration(4) * time.Second
	reportInterval := time.Duration(60) * time.Second

	flag.DurationVar(&pingInterval, "pingInterval", pingInterval, "interval for ICMP echo requests")
	flag.DurationVar(&pingTimeout, "pingTimeout", pingTimeout, "timeout for ICMP echo request")
	flag.DurationVar(&reportInterval, "reportInterval", reportInterval, "interval for reports")
	flag.UintVar(&size, "size", 56, "size of additional payload data")
	flag.UintVar(&history, "history", 0, "results kept per target, defaults to one report interval")
	flag.BoolVar(&privileged, "privileged", false, "use raw sockets")
	flag.Parse()
	targets := flag.Args()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)

	if len(targets) == 0 {
		fmt.Println("Usage:", os.Args[0], "[options] target1 target2 ...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	pinger, err := ping.New("0.0.0.0", "::", privileged)
	if err != nil {
		fmt.Printf("Unable to bind: %s\n", err)
		os.Exit(2)
	}
	defer pinger.Close()
	pinger.Timeout = pingTimeout

	if history == 0 {
		history = uint(reportInterval/pingInterval) + 1
	}
	stats := monitor.New(int(history))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := pingwatch.New(context.WithoutCancel(ctx), pinger, stats)
	sup.Interval = pingInterval
	sup.PayloadSize = uint16(size)
	sup.Logger = logger
	defer sup.Close()

	if err := sup.Start(targets); err != nil {
		level.Warn(logger).Log("msg", "invalid targets", "err", err)
	}

	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			level.Info(logger).Log("msg", "shutting down")
			return
		case <-ticker.C:
			enc.Encode(stats.ExportAndClear())
		}
	}
}
