package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/monitor"
	"github.com/digineo/pingwatch/ping"
)

var opts = struct {
	timeout        time.Duration
	interval       time.Duration
	resolveTimeout time.Duration
	statBufferSize uint
	bind4          string
	bind6          string
	privileged     bool
}{
	timeout:        1000 * time.Millisecond,
	interval:       1000 * time.Millisecond,
	resolveTimeout: 1500 * time.Millisecond,
	bind4:          "0.0.0.0",
	bind6:          "::",
	statBufferSize: 50,
}

func main() {
	flag.DurationVar(&opts.timeout, "timeout", opts.timeout, "timeout for a single echo request")
	flag.DurationVar(&opts.interval, "interval", opts.interval, "polling interval")
	flag.DurationVar(&opts.resolveTimeout, "resolve-timeout", opts.resolveTimeout, "timeout for DNS lookups")
	flag.UintVar(&opts.statBufferSize, "buf", opts.statBufferSize, "buffer size for statistics")
	flag.StringVar(&opts.bind4, "bind4", opts.bind4, "IPv4 bind address, empty to disable")
	flag.StringVar(&opts.bind6, "bind6", opts.bind6, "IPv6 bind address, empty to disable")
	flag.BoolVar(&opts.privileged, "privileged", opts.privileged, "use raw sockets")
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(hosts []string) error {
	logs := &logInterceptor{keep: 5}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(logs))
	logger = level.NewFilter(log.WithPrefix(logger, "ts", log.TimestampFormat(time.Now, time.TimeOnly)), level.AllowInfo())

	dests, errs := destinations(hosts, opts.resolveTimeout)
	for _, err := range errs {
		level.Warn(logger).Log("msg", "skipping host", "err", err)
	}
	if len(dests) == 0 {
		return fmt.Errorf("no destinations, usage: %s [flags] host...", os.Args[0])
	}

	pinger, err := ping.New(opts.bind4, opts.bind6, opts.privileged)
	if err != nil {
		return err
	}
	defer pinger.Close()
	pinger.Timeout = opts.timeout

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stats := monitor.New(int(opts.statBufferSize))
	sup := pingwatch.New(ctx, pinger, stats)
	sup.Interval = opts.interval
	sup.Logger = logger
	defer sup.Close()

	keys := make([]string, len(dests))
	for i, d := range dests {
		keys[i] = d.key
	}
	if err := sup.Start(keys); err != nil {
		level.Warn(logger).Log("msg", "not all destinations started", "err", err)
	}

	ui := buildTUI(sup, stats, logs, dests)
	go ui.update(ctx, time.Second)

	return ui.Run()
}
