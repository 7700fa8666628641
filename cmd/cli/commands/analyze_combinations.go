package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/oncall-roster/pkg/core/services"
)

// AnalyzeCombinationsCmd creates the analyzeCombinations command
func AnalyzeCombinationsCmd(app *AppContext) *cobra.Command {
	var rosterPath string

	cmd := &cobra.Command{
		Use:   "analyzeCombinations",
		Short: "Compare combination opportunities with what doctors can still take",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.LoadRoster(rosterPath)
			if err != nil {
				return err
			}

			report, err := services.AnalyzeCombinations(app.Ctx, app.StaffSource(), app.Cfg, app.Logger, doc)
			if err != nil {
				return err
			}

			fmt.Print(renderCombinations(report))
			return nil
		},
	}

	cmd.Flags().StringVarP(&rosterPath, "roster", "r", "", "Roster file (.yaml or .json), defaults to rosterFile from the config")

	return cmd
}
