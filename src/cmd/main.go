package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfg "spotserv/src/configuration"
	"spotserv/src/logging"
	db "spotserv/src/repository"
	server "spotserv/src/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool

	config *cfg.Properties
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spotserv",
	Short: "spotserv - backend for the place review app",
	Long: `spotserv serves posts, profiles and friends of the place review app
and proxies Google Places nearby searches for the map page.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = cfg.ReadProperties()
		if err != nil {
			return err
		}
		if verbose {
			config.LogLevel = "debug"
		}
		logger, err = logging.New(config.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.DB.URL == "" {
			return fmt.Errorf("DB_URL is empty, nothing to migrate")
		}
		pool, err := db.NewPool(cmd.Context(), config.DB.URL, config.DB.MaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		logger.Info("schema is up to date")
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	return server.RunServer(cmd.Context(), config, logger)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
