package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/session"
)

func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Works without auth config: signing out only touches the
			// local token store.
			path, err := session.DefaultStorePath()
			if err != nil {
				return fmt.Errorf("resolving token store path: %w", err)
			}
			store, err := session.OpenStore(path)
			if err != nil {
				return fmt.Errorf("opening token store: %w", err)
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return fmt.Errorf("clearing token store: %w", err)
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}
