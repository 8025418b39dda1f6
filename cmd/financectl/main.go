package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/config"
	applog "finance/internal/log"
)

// app carries state shared by subcommands. The backend is opened on first
// use and closed after the command returns.
type app struct {
	configFile string
	verbose    bool

	cfg     *config.Config
	logger  *applog.Logger
	backend *backend.Backend
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "financectl",
		Short: "Personal finance ledger from the command line",
		Long: `financectl reads and edits the finance ledger directly: monthly summaries,
yearly series, recurring rules, categories, backups and the spreadsheet report.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(summaryCmd(a))
	root.AddCommand(seriesCmd(a))
	root.AddCommand(reconcileCmd(a))
	root.AddCommand(generateCmd(a))
	root.AddCommand(deleteGeneratedCmd(a))
	root.AddCommand(categoriesCmd(a))
	root.AddCommand(rulesCmd(a))
	root.AddCommand(backupCmd(a))
	root.AddCommand(resetCmd(a))
	root.AddCommand(exportSheetCmd(a))
	root.AddCommand(themeCmd(a))

	return root
}

func main() {
	ctx, stop := cli.ShutdownContext(context.Background())

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Only warnings reach the terminal unless asked; stdout is for output.
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	a.logger = cli.SetupLoggerTo(cmd.ErrOrStderr(), level, cfg.LogFormat).WithComponent(applog.ComponentCLI)
	return nil
}

func (a *app) open(ctx context.Context) (*backend.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	b, err := cli.InitBackend(ctx, a.logger, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	a.backend = b
	return b, nil
}

func (a *app) close() {
	if a.backend == nil {
		return
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Failed to close backend", applog.FieldError, err)
	}
	a.backend = nil
}
