package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

type checkOutput struct {
	Path     string           `json:"path"`
	Required string           `json:"required,omitempty"`
	Decision access.Decision  `json:"decision"`
	Trace    []string         `json:"trace"`
	Redirect *access.Redirect `json:"redirect,omitempty"`
	Denial   *access.Denial   `json:"denial,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var (
		src        principalSource
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "check PATH",
		Short: "Evaluate a principal against a path",
		Long: `Run the access guard for PATH and print the decision together with
the redirect and inline presentations of a denial.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, &src, args[0], jsonOutput)
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the decision as JSON")
	return cmd
}

func runCheck(cmd *cobra.Command, src *principalSource, path string, jsonOutput bool) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must start with /", path)
	}
	p, rejected, err := src.load(cmd.Context())
	if err != nil {
		return err
	}
	for _, r := range rejected {
		cmd.PrintErrf("warning: ignored malformed permission %s:%s:%s\n", r.Module, r.Action, r.Resource)
	}

	svc := newService()
	redirect, _ := access.NewGuard(svc, access.GuardConfig{Mode: access.ModeRedirect}).Check(cmd.Context(), path, p)
	inline, _ := access.NewGuard(svc, access.GuardConfig{Mode: access.ModeInline}).Check(cmd.Context(), path, p)

	out := checkOutput{
		Path:     path,
		Decision: redirect.Decision,
		Redirect: redirect.Redirect,
		Denial:   inline.Denial,
	}
	if req, ok := svc.Registry().Resolve(path); ok {
		out.Required = req.Permission().String()
	}
	for _, s := range redirect.Trace {
		out.Trace = append(out.Trace, s.String())
	}

	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := cmd.OutOrStdout()
	required := out.Required
	if required == "" {
		required = "(fallback rule)"
	}
	_, _ = fmt.Fprintf(w, "path:     %s\n", out.Path)
	_, _ = fmt.Fprintf(w, "requires: %s\n", required)
	_, _ = fmt.Fprintf(w, "outcome:  %s\n", out.Decision.Outcome)
	_, _ = fmt.Fprintf(w, "trace:    %s\n", strings.Join(out.Trace, " -> "))
	if out.Redirect != nil {
		_, _ = fmt.Fprintf(w, "redirect: %s\n", out.Redirect.Location)
	}
	if out.Denial != nil {
		_, _ = fmt.Fprintf(w, "inline:   %s: %s\n", out.Denial.Title, out.Denial.Message)
	}
	return nil
}
