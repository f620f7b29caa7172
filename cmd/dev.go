package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/isle/internal/styles"
	"github.com/conneroisu/isle/internal/supervisor"
	"github.com/conneroisu/isle/internal/watcher"
)

var devFlags *StandardFlags

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"d"},
	Short:   "Run the dev server and reload on change",
	Long: `Dev runs "isle serve" as a child process and watches the site root.
Changes are coalesced over a short window, then:

  - the config file, package.json or .env restart the server
  - style sources are recompiled and open pages reload
  - anything else reloads open pages

The server is restarted from the running isle binary. Changes to isle
itself need a rebuild and a new "isle dev".

Examples:
  isle dev
  isle dev --port 8080`,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)
	devFlags = AddStandardFlags(devCmd, "server")
}

func runDev(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(cmd, devFlags)
	if err != nil {
		return err
	}

	ignore := append([]string{}, cfg.Dev.Ignore...)
	ignore = append(ignore, filepath.Base(cfg.Paths.Cache), filepath.Base(cfg.Paths.Output))
	source, err := watcher.NewFSSource(cfg.Paths.Root, logger,
		watcher.IgnoreFilter(ignore), watcher.NoTempFilter)
	if err != nil {
		return err
	}

	compiler := styles.NewCompiler(cfg.Paths.Src, cfg.Paths.Styles, cfg.Paths.StyleModuleCache(), logger, nil)
	runner := supervisor.NewExecRunner(append(logFlags(), devFlags.ChildArgs(cmd)...)...)

	sup := supervisor.New(runner, source, supervisor.Options{
		BaseURL:         cfg.Server.BaseURL(),
		Debounce:        cfg.Dev.Debounce,
		HealthAttempts:  cfg.Dev.HealthAttempts,
		HealthInterval:  cfg.Dev.HealthInterval,
		RestartPatterns: cfg.Dev.RestartPatterns,
		Regenerate: func(ctx context.Context) error {
			_, err := compiler.Compile(ctx, false)
			return err
		},
	}, logger, nil)

	logger.Info(ctx, "Watching for changes", "root", cfg.Paths.Root, "url", cfg.Server.BaseURL())
	return sup.Run(ctx)
}
