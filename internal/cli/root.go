package cli

import (
	"github.com/spf13/cobra"
)

// These variables are bound to the persistent flags of the root command.
var (
	ConfigPath   string
	Verbose      bool
	NoColor      bool
	OutputFormat string
)

// NewRootCmd creates the apkfetch command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apkfetch",
		Short: "Resolve and download Android packages",
		Long: `apkfetch resolves an application id into download links by obtaining
short-lived credentials for a simulated device, then downloads, merges and
signs the artifacts:
- CLI: resolve, download, devices
- Server: streaming HTTP front-end (serve)`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&ConfigPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVarP(&OutputFormat, "output", "o", "", "output format (text, json)")

	cmd.AddCommand(
		NewResolveCmd(),
		NewDownloadCmd(),
		NewServeCmd(),
		NewDevicesCmd(),
		NewConfigCmd(),
		NewCacheCmd(),
		NewHooksCmd(),
		NewVersionCmd(),
	)

	return cmd
}
