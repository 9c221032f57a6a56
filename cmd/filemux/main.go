package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/filemux/filemux/internal/config"
	"github.com/filemux/filemux/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	dir     string
	api     string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "filemux",
		Short: "Serve an API from a directory of route files",
		Long: `filemux routes HTTP requests to files.

Every directory under the API directory is a path segment and every
route file in it handles that path:

  api/users/[id]/route.get.ts     GET /api/users/{id}
  api/docs/[...path]/route.ts     any method, /api/docs/a/b/c
  api/(admin)/stats/route.ts      /api/stats
  api/@v2/users/route.ts          /api/users with X-Api-Version: v2

middleware.* and authorizer.* files wrap every route beneath them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.dir, "dir", "C", "", "Project directory (default: working directory)")
	pf.StringVar(&flags.api, "api", "", "API directory (default from filemux.json)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(
		devCmd(flags),
		startCmd(flags),
		routesCmd(flags),
		lookupCmd(flags),
		checkCmd(flags),
		buildCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads the project configuration and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.dir != "" {
		cfg, err = config.LoadDir(f.dir)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if f.api != "" {
		cfg.API = f.api
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger returns a text logger on stderr.
func (f *globalFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
