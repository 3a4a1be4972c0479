package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

func newLandingCmd() *cobra.Command {
	var src principalSource
	cmd := &cobra.Command{
		Use:   "landing",
		Short: "Show a principal's default route and visible menu",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := src.load(cmd.Context())
			if err != nil {
				return err
			}
			svc := newService()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "landing: %s\n", svc.ResolveDefault(p))
			for _, e := range access.FilterMenu(svc, p, access.DefaultMenu()) {
				_, _ = fmt.Fprintf(w, "  %-14s %s\n", e.Label, e.Path)
			}
			return nil
		},
	}
	src.register(cmd)
	return cmd
}
