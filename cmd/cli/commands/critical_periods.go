package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/oncall-roster/pkg/core/services"
)

// CriticalPeriodsCmd creates the criticalPeriods command
func CriticalPeriodsCmd(app *AppContext) *cobra.Command {
	var (
		rosterPath string
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "criticalPeriods",
		Short: "List the periods where too many staff are unavailable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.LoadRoster(rosterPath)
			if err != nil {
				return err
			}

			var seedOpt *uint64
			if cmd.Flags().Changed("seed") {
				seedOpt = &seed
			}

			result, err := services.CriticalPeriods(app.Ctx, app.StaffSource(), app.Cfg, app.Logger, doc, seedOpt)
			if err != nil {
				return err
			}

			fmt.Print(renderCriticalPeriods(result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&rosterPath, "roster", "r", "", "Roster file (.yaml or .json), defaults to rosterFile from the config")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed ordering near-tied periods")

	return cmd
}
