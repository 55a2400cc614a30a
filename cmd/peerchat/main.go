// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// peerchat is a terminal chat client that talks to other peerchat
// clients directly over WebRTC data channels. A peerchat-broker relays
// only the connection offers and answers; message text never passes
// through it.
//
// Identity, nicknames, and conversation history are kept in a SQLite
// database under paths.data (see lib/config). With --ephemeral nothing
// is written to disk and a fresh identity is generated each run.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/peerchat/chatui"
	"github.com/bureau-foundation/peerchat/lib/chatstore"
	"github.com/bureau-foundation/peerchat/lib/config"
	"github.com/bureau-foundation/peerchat/lib/version"
	"github.com/bureau-foundation/peerchat/session"
	"github.com/bureau-foundation/peerchat/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var logOutput string
	var brokerURL string
	var ephemeral bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("peerchat", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $"+config.EnvVar+", then built-in defaults)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.StringVar(&brokerURL, "broker", "", "signaling broker URL (overrides broker.url)")
	flagSet.BoolVar(&ephemeral, "ephemeral", false, "keep identity and history in memory only")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		version.Print(os.Stdout, "peerchat")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if brokerURL != "" {
		cfg.Broker.URL = brokerURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("peerchat needs an interactive terminal")
	}

	// The TUI owns the terminal: warnings flash in the footer and the
	// full record stream goes to --log-output when set.
	tuiHandler := chatui.NewTUILogHandler(slog.LevelWarn)
	logger, closeLog, err := openLogger(logOutput, tuiHandler)
	if err != nil {
		return err
	}
	defer closeLog()

	kv, closeStore, err := openStore(cfg, ephemeral, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	signaler := transport.NewHTTPSignaler(cfg.Broker.URL, nil)
	iceConfig := transport.ICEConfigFromConfig(cfg.ICE.Servers)
	newEndpoint := func(identity string, events func(transport.Event)) (session.Endpoint, error) {
		return transport.NewEndpoint(transport.EndpointConfig{
			Identity:     identity,
			Signaler:     signaler,
			ICE:          iceConfig,
			PollInterval: cfg.PollInterval(),
			Events:       events,
			Logger:       logger.With("component", "transport"),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan session.Update, 256)
	chatSession, err := session.New(session.Config{
		Store:           chatstore.New(kv),
		NewEndpoint:     newEndpoint,
		LivenessTimeout: cfg.LivenessTimeout(),
		Updates: func(update session.Update) {
			select {
			case updates <- update:
			case <-ctx.Done():
			}
		},
		Logger: logger.With("component", "session"),
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(chatui.NewModel(chatSession, updates), tea.WithAltScreen())
	tuiHandler.SetProgram(program)

	sessionDone := make(chan error, 1)
	go func() {
		err := chatSession.Run(ctx)
		if err != nil {
			program.Quit()
		}
		sessionDone <- err
	}()

	logger.Info("peerchat starting",
		"version", version.Info(),
		"broker", cfg.Broker.URL,
		"ephemeral", ephemeral,
	)

	_, programErr := program.Run()
	cancel()
	sessionErr := <-sessionDone

	if sessionErr != nil {
		return sessionErr
	}
	return programErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openStore opens the persistent SQLite store, or an in-memory one
// for --ephemeral runs.
func openStore(cfg *config.Config, ephemeral bool, logger *slog.Logger) (chatstore.KV, func(), error) {
	if ephemeral {
		return chatstore.NewMemoryKV(), func() {}, nil
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, nil, err
	}
	kv, err := chatstore.OpenSQLite(cfg.DatabasePath(), logger.With("component", "chatstore"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", cfg.DatabasePath(), err)
	}
	return kv, func() {
		if err := kv.Close(); err != nil {
			logger.Error("closing store", "error", err)
		}
	}, nil
}

// openLogger returns a logger writing to tui and, when path is set, to
// a JSON file at path. The file is created or truncated.
func openLogger(path string, tui slog.Handler) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(tui), func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(fanoutHandler{tui, fileHandler}), func() { file.Close() }, nil
}

// fanoutHandler is a slog.Handler that sends each record to multiple
// underlying handlers. A record is enabled if any sub-handler is
// enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			errs = append(errs, handler.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `peerchat: peer-to-peer terminal chat.

Share your ID (shown in the header) with a friend, type theirs into
the "Connect to" field, and press Enter. Both of you need to reach the
same peerchat-broker.

Usage:
  peerchat [flags]

Examples:
  # Chat using the default local broker and ~/.local/share/peerchat
  peerchat

  # Use a shared broker without touching disk
  peerchat --broker https://signal.example.com --ephemeral

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
