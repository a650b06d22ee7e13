package cli

import (
	"fmt"
	"path/filepath"

	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/pkg/orchestrator"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// downloadResult is the json output of the download command.
type downloadResult struct {
	Package     string `json:"package"`
	VersionCode int64  `json:"versionCode"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Original    bool   `json:"original"`
}

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	var (
		flags       requestFlags
		outputDir   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "download PACKAGE",
		Short: "Download a package as a single installable file",
		Long: `Resolve a package, download its primary and secondary artifacts, merge
them into one file and sign it when a signing tool is available. Packages
without secondary artifacts are saved as downloaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], flags, outputDir, concurrency)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&outputDir, "dir", "d", ".", "Directory receiving the assembled file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel downloads (0=config)")

	return cmd
}

func runDownload(cmd *cobra.Command, pkg string, flags requestFlags, outputDir string, concurrency int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(cfg, progressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	cacheManager, err := newCacheManager(cfg)
	if err != nil {
		return err
	}

	if concurrency <= 0 {
		concurrency = cfg.Settings.DownloadConcurrency
	}
	opts := orchestrator.FetchOptions{
		WorkDir:     filepath.Join(cacheManager.ArtifactDirectory(), pkg),
		Concurrency: concurrency,
		OutputDir:   outputDir,
	}

	req := flags.request(pkg, orchestrator.Request{Device: cfg.Settings.DefaultDevice, Region: cfg.Settings.DefaultRegion})
	res, err := orch.Fetch(cmd.Context(), req, opts)
	if err != nil {
		return fmt.Errorf("failed to download %s (%s): %w", pkg, model.KindOf(err), err)
	}

	out := downloadResult{
		Package:     res.Plan.Package,
		VersionCode: res.Plan.VersionCode,
		Filename:    res.Filename,
		Path:        res.Path,
		Size:        int64(len(res.Data)),
		Original:    res.Original,
	}
	if cfg.Settings.OutputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	logger.Success("Package downloaded", logrus.Fields{"path": out.Path, "size": model.FormatSize(out.Size)})
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Path)
	return nil
}
