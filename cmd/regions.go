package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/engine"
)

func NewRegionsCmd() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List the regions available to this account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.requireSession(ctx); err != nil {
				return err
			}

			eng := app.newEngine(app.cfg.Merge(region), engine.Options{})
			regions, err := eng.Regions(ctx)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"REGION", "NAME", "OPTED IN"})
			for _, r := range regions {
				optedIn := "yes"
				if !r.OptedIn {
					optedIn = "no"
				}
				tw.AppendRow(table.Row{r.Code, r.DisplayName, optedIn})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")

	return cmd
}
