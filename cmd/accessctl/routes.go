package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type routeRow struct {
	Pattern  string `json:"pattern"`
	Module   string `json:"module"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

type routesOutput struct {
	Routes   []routeRow  `json:"routes"`
	Overlaps [][2]string `json:"overlaps"`
}

func newRoutesCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route requirement table",
		Long: `Print every registered route pattern with the permission it requires,
followed by parameterised patterns that could match the same path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoutes(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the table as JSON")
	return cmd
}

func runRoutes(cmd *cobra.Command, jsonOutput bool) error {
	registry := newService().Registry()
	out := routesOutput{Overlaps: [][2]string{}}
	for _, req := range registry.Requirements() {
		out.Routes = append(out.Routes, routeRow{
			Pattern:  req.Pattern,
			Module:   req.Module,
			Action:   req.Action.String(),
			Resource: req.Resource.String(),
		})
	}
	for _, o := range registry.Overlaps() {
		out.Overlaps = append(out.Overlaps, [2]string{o.First, o.Second})
	}

	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PATTERN\tMODULE\tACTION\tRESOURCE")
	for _, r := range out.Routes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Pattern, r.Module, r.Action, r.Resource)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, o := range out.Overlaps {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "overlap: %s shadows %s\n", o[0], o[1])
	}
	return nil
}
