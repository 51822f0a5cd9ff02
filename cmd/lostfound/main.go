// Command lostfound runs the campus lost-and-found API server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/campuslost/lostfound/internal/config"
)

const (
	Version = "0.1.0"
	appName = "lostfound"
)

// flags holds command-line overrides. Only flags the user set are applied.
type flags struct {
	configPath string
	dbPath     string
	addr       string
	logLevel   string
	logPath    string
	debug      bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, &f)
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Campus lost-and-found server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&f.dbPath, "db", "d", "", "SQLite database path (default: lostfound.sqlite3)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&f.logPath, "log", "l", "", "log file path (default: stdout/stderr only)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	for _, c := range []*cobra.Command{cmd, serveCmd} {
		c.Flags().StringVarP(&f.addr, "addr", "a", "", "listen address (default: :8080)")
		c.Flags().BoolVar(&f.debug, "debug", false, "include internal error details in 500 responses")
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the bootstrap admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runInit(cmd.Context(), cfg)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	}

	cmd.AddCommand(serveCmd, initCmd, versionCmd)
	return cmd
}

// loadConfig layers defaults, the config file, .env and the environment,
// then explicitly set flags.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := config.DefaultConfig()
	if f.configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("db") {
		cfg.Database.Path = f.dbPath
	}
	if changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if changed("debug") {
		cfg.Server.Debug = f.debug
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log") {
		cfg.Log.File = f.logPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
