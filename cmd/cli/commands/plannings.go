package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/oncall-roster/pkg/core/services"
)

// ResetPlanningCmd creates the resetPlanning command
func ResetPlanningCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resetPlanning [planning_id]",
		Short: "Clear a stored planning's assignments, keeping pre-attributions and Friday long nights",
		Long:  "Clear a stored planning's assignments, keeping pre-attributions and Friday long nights.\nWithout an ID the most recent planning is reset.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.RequireDatabase("resetPlanning")
			if err != nil {
				return err
			}

			planningID := ""
			if len(args) == 1 {
				planningID = args[0]
			}

			result, err := services.ResetPlanning(app.Ctx, database, app.Logger, planningID)
			if err != nil {
				return err
			}

			fmt.Print(renderReset(result))
			return nil
		},
	}
}

// ListPlanningsCmd creates the listPlannings command
func ListPlanningsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listPlannings",
		Short: "List stored plannings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.RequireDatabase("listPlannings")
			if err != nil {
				return err
			}

			plannings, err := services.ListPlannings(app.Ctx, database)
			if err != nil {
				return err
			}

			fmt.Print(renderPlannings(plannings))
			return nil
		},
	}
}
