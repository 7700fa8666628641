package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/internal/storage"
	"github.com/jakechorley/oncall-roster/pkg/core/services"
)

// DistributeCmd creates the distribute command
func DistributeCmd(app *AppContext) *cobra.Command {
	var (
		rosterPath string
		seed       uint64
		dryRun     bool
		reset      bool
		notify     bool
	)

	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Distribute the weekday slots of a roster and store the planning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.LoadRoster(rosterPath)
			if err != nil {
				return err
			}

			var store services.DistributeStore
			if !dryRun {
				database, err := app.RequireDatabase("distribute")
				if err != nil {
					if errors.Is(err, storage.ErrNotConfigured) {
						return fmt.Errorf("%w (use --dry-run to distribute without storing)", err)
					}
					return err
				}
				store = database
			}

			opts := services.DistributeOptions{DryRun: dryRun, Reset: reset}
			if cmd.Flags().Changed("seed") {
				opts.Seed = &seed
			}

			result, err := services.DistributeRoster(app.Ctx, store, app.StaffSource(), app.Cfg, app.Logger, doc, opts)
			if err != nil {
				return err
			}

			fmt.Print(renderDistribution(result))

			if notify {
				mailer := app.Mailer()
				if mailer == nil {
					return fmt.Errorf("--notify needs gmail recipients in the config")
				}
				sent, err := services.NotifyShortfall(app.Ctx, mailer, app.Logger, app.Cfg.Gmail.Recipients, result.Roster.Name, result.Outcome.Shortfall)
				if err != nil {
					return err
				}
				app.Logger.Debug("Notified shortfall", zap.Int("emails", sent))
				if sent > 0 {
					fmt.Printf("\nSent %d shortfall emails\n", sent)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&rosterPath, "roster", "r", "", "Roster file (.yaml or .json), defaults to rosterFile from the config")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the run, overrides the config and roster seeds")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run without storing the planning")
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear assignments carried by the roster, except preserved ones, before the run")
	cmd.Flags().BoolVar(&notify, "notify", false, "Email the shortfall report to the configured recipients")

	return cmd
}
