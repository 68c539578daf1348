package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Anon-E-Mus/cutewhisper/config"
	"github.com/Anon-E-Mus/cutewhisper/history"
	"github.com/Anon-E-Mus/cutewhisper/internal/app"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (default: user config dir)")
		logLevel      = flag.String("log-level", "info", "log level: debug, info, warn, error")
		showVersion   = flag.Bool("version", false, "print version and exit")
		exportHistory = flag.Bool("export-history", false, "write transcription history to stdout and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("cutewhisper %s (%s, %s)\n", version, commit, date)
		return
	}

	setupLogging(*logLevel)
	slog.Info("starting", "version", version, "commit", commit, "date", date)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	if *exportHistory {
		if err := exportHistoryTo(cfg, os.Stdout); err != nil {
			slog.Error("export history", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg).Run(ctx); err != nil {
		slog.Error("run", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func exportHistoryTo(cfg *config.Config, w *os.File) error {
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Export(w)
	if err != nil {
		return err
	}
	slog.Info("exported history", "entries", n)
	return nil
}
