package cli

import (
	"github.com/glorpus-work/apkfetch/internal/server"
	"github.com/glorpus-work/apkfetch/pkg/artifact"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the streaming HTTP front-end",
		Long: `Serve resolution and download progress as server-sent events. Finished
artifacts are kept in memory for one pickup under /api/download-temp/{id}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to config)")

	return cmd
}

func runServe(cmd *cobra.Command, listen string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Server.Listen
	}

	orch, err := newOrchestrator(cfg, nil)
	if err != nil {
		return err
	}

	store := artifact.NewStore(cfg.Server.ArtifactCapacity, cfg.Server.ArtifactTTL)
	defer store.Close()
	orch.Artifacts = store

	srv := server.New(orch, store, server.Options{
		EventBuffer: cfg.Server.EventBuffer,
		Concurrency: cfg.Settings.DownloadConcurrency,
	})
	return srv.Run(cmd.Context(), listen)
}
