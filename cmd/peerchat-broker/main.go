// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// peerchat-broker relays WebRTC offers and answers between peerchat
// clients. It keeps pending signals in memory for a short time and
// never sees chat text.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/peerchat/lib/clock"
	"github.com/bureau-foundation/peerchat/lib/config"
	"github.com/bureau-foundation/peerchat/lib/version"
	"github.com/bureau-foundation/peerchat/transport"
)

// shutdownTimeout bounds graceful shutdown after a signal.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var listenAddress string
	var verbose bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("peerchat-broker", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $"+config.EnvVar+", then built-in defaults)")
	flagSet.StringVar(&listenAddress, "listen", "", "address to listen on (overrides broker.listen)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every signal at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print(os.Stdout, "peerchat-broker")
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if listenAddress != "" {
		cfg.Broker.Listen = listenAddress
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	listener, err := net.Listen("tcp", cfg.Broker.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Broker.Listen, err)
	}

	server := newServer(logger)
	logger.Info("starting peerchat-broker",
		"version", version.Info(),
		"listen", listener.Addr().String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(listener) }()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}
	logger.Info("received shutdown signal")

	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// newServer builds the broker's HTTP server around a fresh signal
// store.
func newServer(logger *slog.Logger) *http.Server {
	broker := transport.NewBroker(transport.NewMemorySignaler(clock.Real()), logger)
	return &http.Server{
		Handler:           broker,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
