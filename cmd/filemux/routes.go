package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/filemux/filemux/internal/dev"
	"github.com/filemux/filemux/internal/errors"
	"github.com/filemux/filemux/pkg/routepath"
	"github.com/filemux/filemux/pkg/router"
)

func routesCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes of the API directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			routes, _, err := dev.LoadRoutes(cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), routes.Routes())
			}
			return printRoutes(cmd.OutOrStdout(), routes.Routes())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print routes as JSON")
	return cmd
}

func lookupCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <path>",
		Short: "Show how a request path resolves",
		Long: `Resolve a request path against the API directory and print the
matched pattern, bound parameters, handlers and middleware chain.

Examples:
  filemux lookup /api/users/42
  filemux lookup '/api/docs/guides/intro?draft=1'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			routes, _, err := dev.LoadRoutes(cfg)
			if err != nil {
				return err
			}

			p, err := routepath.Clean(args[0])
			if err != nil {
				return errors.New(errors.CodeInvalidPath).WithDetail(err.Error())
			}
			res, ok := routes.Lookup(p.Path)
			if !ok {
				return errors.New(errors.CodeRouteNotFound).WithDetailf("no route matches %s", p.Path)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func checkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report route files that can never be served",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			_, files, err := dev.LoadRoutes(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			validator := router.NewValidator(files)
			if err := validator.Validate(); err != nil {
				for _, issue := range validator.Issues() {
					warn(out, "%s", issue.Error())
					for _, f := range issue.Files {
						info(out, "  %s", f)
					}
				}
				return err
			}
			success(out, "%d files, no issues", len(files))
			return nil
		},
	}
}

// printRoutes writes one line per handler.
func printRoutes(w io.Writer, routes []router.Route) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tMETHOD\tVERSION\tKIND\tFILE")
	for _, route := range routes {
		for _, method := range route.Resource.Methods() {
			versions := route.Resource[method]
			for _, v := range sortedVersions(versions) {
				h := versions[v]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", route.Pattern, method, v, h.Kind, h.File)
			}
		}
	}
	return tw.Flush()
}

func sortedVersions(versions map[string]router.Handler) []string {
	out := make([]string, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
