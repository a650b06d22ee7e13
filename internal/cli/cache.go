package cli

import (
	"fmt"

	"github.com/glorpus-work/apkfetch/pkg/cache"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached credentials and downloads",
		Long:  "Clean, show information about, and locate cached credentials and downloaded artifacts",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var (
		all         bool
		credentials bool
		artifacts   bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the cache",
		Long:  "Remove cached credentials and downloaded artifacts. Without flags everything is removed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheClean(cmd, all, credentials, artifacts)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clean all cached files")
	cmd.Flags().BoolVar(&credentials, "credentials", false, "Clean only cached credentials")
	cmd.Flags().BoolVar(&artifacts, "artifacts", false, "Clean only downloaded artifacts")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display sizes and file counts of the cache",
		RunE:  runCacheInfo,
	}

	return cmd
}

func newCacheDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		Long:  "Display the path to the cache directory",
		RunE:  runCacheDir,
	}

	return cmd
}

func loadCacheOperation() (*cache.Operation, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	manager, err := newCacheManager(cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewOperation(manager), nil
}

func runCacheClean(cmd *cobra.Command, all, credentials, artifacts bool) error {
	cacheOp, err := loadCacheOperation()
	if err != nil {
		return err
	}

	msg, err := cacheOp.Clean(all, credentials, artifacts)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	cacheOp, err := loadCacheOperation()
	if err != nil {
		return err
	}

	info, err := cacheOp.GetInfo()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), info)
	return nil
}

func runCacheDir(cmd *cobra.Command, _ []string) error {
	cacheOp, err := loadCacheOperation()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cacheOp.GetDirectory())
	return nil
}
