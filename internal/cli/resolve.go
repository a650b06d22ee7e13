package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// requestFlags are shared by resolve and download.
type requestFlags struct {
	arch    string
	region  string
	version string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.arch, "arch", "", "Device profile key (defaults to config)")
	cmd.Flags().StringVar(&f.region, "region", "", "Region key (defaults to config)")
	cmd.Flags().StringVar(&f.version, "version", "", "Version constraint the resolved label must satisfy, e.g. \">= 2.0\"")
}

func (f *requestFlags) request(pkg string, defaults orchestrator.Request) orchestrator.Request {
	req := orchestrator.Request{Package: pkg, Device: f.arch, Region: f.region, Version: f.version}
	if req.Device == "" {
		req.Device = defaults.Device
	}
	if req.Region == "" {
		req.Region = defaults.Region
	}
	return req
}

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "resolve PACKAGE",
		Short: "Resolve a package into download links",
		Long: `Resolve an application id into its version metadata, download links and
session cookies. A cached credential is tried first, then fresh credentials
are obtained until one is accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], flags)
		},
	}
	flags.bind(cmd)

	return cmd
}

func runResolve(cmd *cobra.Command, pkg string, flags requestFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(cfg, progressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	req := flags.request(pkg, orchestrator.Request{Device: cfg.Settings.DefaultDevice, Region: cfg.Settings.DefaultRegion})
	plan, err := orch.Resolve(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to resolve %s (%s): %w", pkg, model.KindOf(err), err)
	}

	if cfg.Settings.OutputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), plan)
	}
	return printPlan(cmd.OutOrStdout(), plan)
}

func printPlan(w io.Writer, plan *model.DownloadPlan) error {
	_, _ = fmt.Fprintf(w, "%s (%s)\n", plan.Title, plan.Package)
	_, _ = fmt.Fprintf(w, "Version: %s (%d)\n", plan.VersionString, plan.VersionCode)
	_, _ = fmt.Fprintf(w, "Filename: %s\n\n", plan.Filename())

	tabWriter := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "ARTIFACT\tSIZE\tURL")
	_, _ = fmt.Fprintln(tabWriter, "--------\t----\t---")
	for _, a := range plan.Artifacts() {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\n", a.Name, model.FormatSize(a.Size), a.URL)
	}
	if err := tabWriter.Flush(); err != nil {
		return err
	}

	if cookie := plan.CookieHeader(); cookie != "" {
		_, _ = fmt.Fprintf(w, "\nCookie: %s\n", cookie)
	}
	return nil
}
