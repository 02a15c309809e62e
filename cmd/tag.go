package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/engine"
)

func NewTagCmd() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "tag <instance-id> <key=value> [key=value...]",
		Short: "Apply tags to an instance",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			tags, err := parseTagPairs(args[1:])
			if err != nil {
				return err
			}

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
			key := engine.Key{Region: eng.Region()}
			if err := eng.Tag(ctx, key, []string{id}, tags); err != nil {
				return err
			}

			fmt.Printf("Tagged %s with %d tag(s).\n", id, len(tags))
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")

	return cmd
}
