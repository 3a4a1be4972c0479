package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

// NewRootCmd creates the root command for accessctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accessctl",
		Short: "Inspect and exercise back-office access control",
		Long: `accessctl prints the route requirement table, evaluates principals
against it and schedules principal cache invalidation.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newRoutesCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newLandingCmd())
	cmd.AddCommand(newInvalidateCmd())

	return cmd
}

func newService() *access.Service {
	return access.NewService(access.DefaultRegistry(), access.DefaultLandingPaths())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
