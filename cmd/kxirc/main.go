package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"git.sr.ht/~kx/kxirc"
	"git.sr.ht/~kx/kxirc/logger"
)

var (
	configPath  string
	nickname    string
	debug       bool
	logFile     string
	logLevel    string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "kxirc",
	Short: "kxirc - a small IRC client",
	Long: `kxirc connects to one IRC server and lets you chat from the terminal.

Plain lines are sent to the current conversation; lines starting with a slash
are commands. Type /help for the list.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create or replace the configuration file interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		_, err = runAssistant(kxirc.FileStore{Path: path})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file")
	rootCmd.Flags().StringVar(&nickname, "nickname", "", "nick name to use instead of the configured one")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log raw protocol data")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file, rotated")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level: trace, debug, info, warn or error")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. localhost:9100")

	rootCmd.AddCommand(configureCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return kxirc.DefaultConfigPath()
}

func run(ctx context.Context) error {
	level := logLevel
	if debug {
		level = "trace"
	}
	log := logger.New(logger.Options{
		Level: level,
		File:  logFile,
	})

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	store := kxirc.FileStore{Path: path}

	cfg, err := store.Load()
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "The configuration file at %q was not found.\n", path)
		cfg, err = runAssistant(store)
	}
	if err != nil {
		return fmt.Errorf("failed to load the configuration file at %q: %w", path, err)
	}
	if nickname != "" {
		cfg.Nick = nickname
	}

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	client := kxirc.NewClient(kxirc.ClientParams{
		Logger: log,
	})
	defer client.Shutdown()

	console := kxirc.NewConsole(client, store, cfg, os.Stdout)
	if target := getLastTarget(); target != "" {
		console.SetTarget(target)
	}
	client.Connect(cfg)

	err = console.Run(ctx, os.Stdin)
	writeLastTarget(console.Target())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(addr string, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", slog.Any("error", err))
		}
	}()
	return srv
}
