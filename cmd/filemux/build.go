package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filemux/filemux/internal/config"
	"github.com/filemux/filemux/internal/dev"
	"github.com/filemux/filemux/pkg/manifest"
)

func buildCmd(flags *globalFlags) *cobra.Command {
	var (
		output string
		bucket string
		key    string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the route manifest",
		Long: `Resolve the API directory once and write the route manifest: every
pattern with its handlers, tools, middleware chain and orchestrator
agents, as JSON.

The manifest is written to manifest.output, or uploaded to S3 when
manifest.s3.bucket is set. Credentials are read from AWS_ACCESS_KEY_ID,
AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.

Examples:
  filemux build
  filemux build --output=dist/routes.json
  filemux build --bucket=deploy-artifacts --key=billing/routes.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Manifest.Output = output
			}
			if bucket != "" {
				cfg.Manifest.S3.Bucket = bucket
			}
			if key != "" {
				cfg.Manifest.S3.Key = key
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Manifest file (default from filemux.json)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Upload the manifest to this S3 bucket")
	cmd.Flags().StringVar(&key, "key", "", "S3 object key (default: the output file name)")
	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	routes, files, err := dev.LoadRoutes(cfg)
	if err != nil {
		return err
	}

	data, err := manifest.Build(routes).Marshal()
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg)
	if err := publisher.Publish(ctx, data); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	success(out, "Manifest written to %s", publisher)
	info(out, "%d files, %d routes", len(files), len(routes.Routes()))
	return nil
}

// newPublisher returns the S3 publisher when a bucket is configured and
// the file publisher otherwise.
func newPublisher(cfg *config.Config) manifest.Publisher {
	s3cfg := cfg.Manifest.S3
	if s3cfg.Bucket == "" {
		return manifest.NewFilePublisher(cfg.ManifestPath())
	}
	key := s3cfg.Key
	if key == "" {
		key = config.DefaultManifestOutput
	}
	client := manifest.NewS3Client(s3cfg.Region, s3cfg.Endpoint)
	return manifest.NewS3Publisher(client, s3cfg.Bucket, key)
}
