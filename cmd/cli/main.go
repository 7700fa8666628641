package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/cmd/cli/commands"
	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/internal/storage"
	"github.com/jakechorley/oncall-roster/internal/telemetry"
	"github.com/jakechorley/oncall-roster/pkg/clients/gmailclient"
	"github.com/jakechorley/oncall-roster/pkg/clients/sheetsclient"
	"github.com/jakechorley/oncall-roster/pkg/utils/logging"
)

var (
	env      string
	app      = &commands.AppContext{}
	shutdown telemetry.Shutdown
	closeLog func() error
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "roster",
		Short: "On-call roster CLI - Distribute weekday posts across doctors and auxiliaries",
		Long:  `A CLI tool for distributing on-call weekday posts, checking critical periods and combination feasibility, and managing stored plannings.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
		SilenceUsage: true,
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.DistributeCmd(app))
	rootCmd.AddCommand(commands.CriticalPeriodsCmd(app))
	rootCmd.AddCommand(commands.AnalyzeCombinationsCmd(app))
	rootCmd.AddCommand(commands.ResetPlanningCmd(app))
	rootCmd.AddCommand(commands.ListPlanningsCmd(app))

	if err := rootCmd.Execute(); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp sets up logger, config, tracing, database and the Google clients
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, closeLog, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	// Initialize tracing
	shutdown, err = telemetry.Setup(app.Ctx, app.Cfg.Telemetry.ServiceName, app.Cfg.Telemetry.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	// Initialize database
	app.Database, err = storage.Open(app.Ctx, app.Cfg.Database, app.Logger)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		app.Logger.Debug("No database configured, plannings will not be stored")
	case err != nil:
		return fmt.Errorf("failed to initialize database: %w", err)
	default:
		app.Logger.Info("Database initialized successfully")
	}

	needsSheets := app.Cfg.Sheets.SpreadsheetID != ""
	needsGmail := len(app.Cfg.Gmail.Recipients) > 0
	if !needsSheets && !needsGmail {
		return nil
	}

	// Load OAuth client configuration
	app.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	// Initialize sheets client, which also obtains the token shared with gmail
	app.Logger.Info("Initializing sheets client")
	app.SheetsClient, err = sheetsclient.NewClient(app.Ctx, oauthCfg, env, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}
	app.Logger.Debug("Sheets client initialized successfully")

	if needsGmail {
		app.Logger.Info("Initializing gmail client")
		app.GmailClient, err = gmailclient.NewClient(app.Ctx, oauthCfg, app.SheetsClient.Token(), app.Cfg.Gmail)
		if err != nil {
			return fmt.Errorf("failed to create gmail client: %w", err)
		}
		app.Logger.Debug("Gmail client initialized successfully")
	}

	return nil
}

// closeApp flushes spans, closes the database and closes the log file
func closeApp() {
	if shutdown != nil {
		if err := shutdown(context.Background()); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to flush traces", zap.Error(err))
		}
		shutdown = nil
	}
	if app.Database != nil {
		if err := app.Database.Close(); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to close database", zap.Error(err))
		}
		app.Database = nil
	}
	if closeLog != nil {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		closeLog = nil
	}
}
