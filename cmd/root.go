/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfmyers9/spotlite/internal/config"
	"github.com/jfmyers9/spotlite/internal/logging"
	"github.com/jfmyers9/spotlite/pkg/webapi"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Global flags
var (
	configFile string
	envFile    string
	jsonOutput bool
	logLevel   string
	logFile    string
	market     string
)

// app is the state shared by subcommands, set up in PersistentPreRunE.
var app struct {
	cfg       *config.Config
	client    *webapi.Client
	logger    zerolog.Logger
	logCloser io.Closer
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spotlite",
	Short: "Look up Spotify tracks, albums and playlists from the terminal",
	Long: `spotlite queries the Spotify catalog without a user login.

By default it mints the same anonymous token the web player uses. If a
client id and secret are configured it uses the client-credentials grant
instead; recommendations are only available anonymously.

Configuration is read from ~/.config/spotlite/config.yaml, a .env file in
the working directory, and SPOTLITE_* environment variables.`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.logCloser != nil {
			_ = app.logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default: ~/.config/spotlite/config.yaml)")
	pf.StringVar(&envFile, "env-file", "", "Dotenv file to load (default: .env)")
	pf.BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	pf.StringVar(&market, "market", "", "Storefront country code, e.g. US (overrides config)")
}

// setup loads configuration, builds the logger and creates the API client.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{File: configFile, EnvFile: envFile})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override config
	if jsonOutput {
		cfg.Output = config.OutputJSON
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if market != "" {
		cfg.Market = market
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer := logging.New(logging.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		Out:   cmd.ErrOrStderr(),
	})

	client, err := webapi.NewClient(cfg.WebAPI(&logger))
	if err != nil {
		_ = closer.Close()
		return fmt.Errorf("failed to create client: %w", err)
	}

	logger.Debug().
		Str("version", version).
		Str("mode", client.Mode().String()).
		Str("market", cfg.Market).
		Msg("client ready")

	app.cfg = cfg
	app.client = client
	app.logger = logger
	app.logCloser = closer
	return nil
}
