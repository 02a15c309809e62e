package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/aws/ec2"
	"github.com/karpella/ec2console/internal/engine"
)

func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <instance-id>",
		Short: "Start a stopped instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], ec2.ActionStart, ec2.ActionOptions{})
		},
	}
	cmd.Flags().StringP("region", "r", "", "AWS region to use")
	return cmd
}

func NewStopCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "stop <instance-id>",
		Short: "Stop a running instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], ec2.ActionStop, ec2.ActionOptions{Force: force})
		},
	}
	cmd.Flags().StringP("region", "r", "", "AWS region to use")
	cmd.Flags().BoolVar(&force, "force", false, "force the stop without a clean shutdown")
	return cmd
}

func NewRebootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reboot <instance-id>",
		Short: "Reboot a running instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], ec2.ActionReboot, ec2.ActionOptions{})
		},
	}
	cmd.Flags().StringP("region", "r", "", "AWS region to use")
	return cmd
}

func NewTerminateCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "terminate <instance-id>",
		Short: "Terminate an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("terminate is irreversible, re-run with --yes to confirm")
			}
			return runAction(cmd, args[0], ec2.ActionTerminate, ec2.ActionOptions{})
		},
	}
	cmd.Flags().StringP("region", "r", "", "AWS region to use")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the termination")
	return cmd
}

// runAction drives one lifecycle action through the mutation
// coordinator. The collection is refreshed first so the target's prior
// state is known for the optimistic transition.
func runAction(cmd *cobra.Command, id string, action ec2.Action, opts ec2.ActionOptions) error {
	ctx := cmd.Context()
	region, _ := cmd.Flags().GetString("region")

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
	if _, err := eng.Refresh(ctx, key); err != nil {
		return err
	}

	out := eng.Dispatch(ctx, key, id, action, opts)
	if !out.OK {
		return fmt.Errorf("%s", out.Message)
	}
	fmt.Println(out.Message)
	return nil
}
