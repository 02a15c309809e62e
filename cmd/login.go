package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/auth"
	awsclient "github.com/karpella/ec2console/internal/aws"
	"github.com/karpella/ec2console/internal/utils"
)

// loginTimeout bounds how long the loopback listener waits for the
// hosted UI to redirect back.
const loginTimeout = 5 * time.Minute

func NewLoginCmd() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through the hosted UI and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
			defer cancel()

			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			listener, err := auth.NewCallbackListener(app.cfg.Redirect())
			if err != nil {
				return fmt.Errorf("starting callback listener: %w", err)
			}
			defer listener.Close()

			url := auth.AuthorizeURL(app.cfg.AuthDomain, app.cfg.ClientID, app.cfg.Redirect())
			if err := openBrowser(url); err != nil {
				fmt.Printf("Open this URL to sign in:\n  %s\n", url)
			} else {
				fmt.Println("Opening the sign-in page in your browser...")
			}
			fmt.Printf("Waiting for the redirect on %s\n", listener.Addr())

			code, err := listener.Wait(ctx)
			if err != nil {
				return fmt.Errorf("waiting for sign-in: %w", err)
			}

			identity, err := app.manager.SignIn(ctx, code)
			if err != nil {
				return fmt.Errorf("signing in: %w", err)
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

			fmt.Printf("Signed in as %s (%s)\n", identity.Email, utils.ShortName(caller.ARN))
			fmt.Printf("Account: %s\n", caller.Account)
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")

	return cmd
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	return cmd.Start()
}
