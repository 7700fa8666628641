package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/config"
	"github.com/jakechorley/oncall-roster/internal/storage"
	"github.com/jakechorley/oncall-roster/pkg/clients/gmailclient"
	"github.com/jakechorley/oncall-roster/pkg/clients/sheetsclient"
	"github.com/jakechorley/oncall-roster/pkg/core/services"
	"github.com/jakechorley/oncall-roster/pkg/db"
	"github.com/jakechorley/oncall-roster/pkg/rosterfile"
)

// AppContext holds the application dependencies shared across all commands.
// Database and the Google clients are nil when not configured.
type AppContext struct {
	Cfg          *config.Config
	SheetsClient *sheetsclient.Client
	GmailClient  *gmailclient.Client
	Database     db.Database
	Logger       *zap.Logger
	Ctx          context.Context
}

// StaffSource returns the sheet client as a staff source, or nil without one
func (app *AppContext) StaffSource() services.StaffSource {
	if app.SheetsClient == nil {
		return nil
	}
	return app.SheetsClient
}

// Mailer returns the gmail client as a mailer, or nil without one
func (app *AppContext) Mailer() services.Mailer {
	if app.GmailClient == nil {
		return nil
	}
	return app.GmailClient
}

// RequireDatabase returns the database or an error naming the command that needed it
func (app *AppContext) RequireDatabase(command string) (db.Database, error) {
	if app.Database == nil {
		return nil, fmt.Errorf("%s: %w", command, storage.ErrNotConfigured)
	}
	return app.Database, nil
}

// LoadRoster reads the roster document from path, falling back to the configured file
func (app *AppContext) LoadRoster(path string) (*rosterfile.Document, error) {
	if path == "" {
		path = app.Cfg.RosterFile
	}
	if path == "" {
		return nil, fmt.Errorf("no roster file given: pass --roster or set rosterFile in the config")
	}
	app.Logger.Debug("Loading roster file", zap.String("path", path))
	return rosterfile.Load(path)
}
