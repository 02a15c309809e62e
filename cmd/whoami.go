package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/auth"
	awsclient "github.com/karpella/ec2console/internal/aws"
	"github.com/karpella/ec2console/internal/utils"
)

func NewWhoamiCmd() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			identity, err := app.requireSession(ctx)
			if err != nil {
				return err
			}

			creds, err := app.manager.Credentials(ctx)
			if err != nil {
				return fmt.Errorf("deriving credentials: %w", err)
			}
			stsAPI, err := awsclient.NewSTSClient(ctx, creds, app.cfg.Merge(region))
			if err != nil {
				return fmt.Errorf("building sts client: %w", err)
			}
			caller, err := auth.VerifyCredentials(ctx, stsAPI)
			if err != nil {
				return err
			}

			fmt.Printf("Email:    %s\n", identity.Email)
			if identity.DisplayName != "" {
				fmt.Printf("Name:     %s\n", identity.DisplayName)
			}
			fmt.Printf("Subject:  %s\n", identity.Subject)
			fmt.Printf("Account:  %s\n", caller.Account)
			fmt.Printf("Caller:   %s\n", utils.ShortName(caller.ARN))
			fmt.Printf("ARN:      %s\n", caller.ARN)
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")

	return cmd
}
