package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/engine"
	"github.com/karpella/ec2console/internal/tui"
)

func NewConsoleCmd() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive EC2 instance dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Route log output away from the terminal; stray lines
			// corrupt the rendered frame. The standard logger is
			// silenced too since the session manager logs through it.
			logrus.SetOutput(io.Discard)
			log := logrus.New()
			log.SetOutput(io.Discard)

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

			eng := app.newEngine(app.cfg.Merge(region), engine.Options{
				Interval: app.cfg.RefreshInterval(),
				Logger:   log,
			})

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			eng.Start(runCtx)

			user := identity.Email
			if user == "" {
				user = identity.DisplayName
			}

			model := tui.NewModel(eng, user)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
			if _, err := p.Run(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")

	return cmd
}
