package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filemux/filemux/internal/config"
	"github.com/filemux/filemux/internal/dev"
)

type serveFlags struct {
	port int
	host string
}

func (s *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&s.port, "port", "p", 0, "Port to listen on (default from filemux.json)")
	cmd.Flags().StringVarP(&s.host, "host", "H", "", "Host to bind to (default from filemux.json)")
}

func (s *serveFlags) apply(cfg *config.Config) {
	if s.port > 0 {
		cfg.Server.Port = s.port
	}
	if s.host != "" {
		cfg.Server.Host = s.host
	}
}

func devCmd(flags *globalFlags) *cobra.Command {
	var sf serveFlags

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Serve the API directory and apply file changes live",
		Long: `Serve the API directory and watch it for changes.

Created, removed and renamed files update the route table while the
server runs. Applied changes are streamed as JSON over a WebSocket at
/_filemux/events.

Examples:
  filemux dev
  filemux dev --port=8080
  filemux dev -C ./services/billing --api=routes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, sf, true)
		},
	}
	sf.register(cmd)
	return cmd
}

func startCmd(flags *globalFlags) *cobra.Command {
	var sf serveFlags

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the API directory without watching it",
		Long: `Serve the API directory as it is at startup.

Examples:
  filemux start
  filemux start --host=0.0.0.0 --port=80`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, sf, false)
		},
	}
	sf.register(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, flags *globalFlags, sf serveFlags, watch bool) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	sf.apply(cfg)
	cfg.Dev.Watch = &watch

	srv, err := dev.NewServer(dev.ServerOptions{
		Config: cfg,
		Logger: flags.logger(),
	})
	if err != nil {
		return err
	}
	files, err := srv.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	success(out, "Loaded %d files from %s", len(files), cfg.APIPath())
	info(out, "Serving on %s", cfg.URL())
	if watch {
		info(out, "Route events on %s%s", cfg.URL(), dev.EventsPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}
