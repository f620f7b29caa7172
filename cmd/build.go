package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/isle/internal/build"
)

var buildFlags *StandardFlags

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the static site",
	Long: `Build cleans the output directory and writes the whole site into it:
public assets, styles.css, island bundles, every page and document, and the
feed. Islands that fail to bundle are reported and skipped.

Examples:
  isle build
  isle build --output public_html --root ./site`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildFlags = AddStandardFlags(buildCmd, "build")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(cmd, buildFlags)
	if err != nil {
		return err
	}
	islands, err := loadIslands(cfg)
	if err != nil {
		return err
	}

	report, err := build.New(cfg, islands, logger, nil).Build(ctx)
	if err != nil {
		logger.Error(ctx, err, "Build failed")
		return err
	}

	if report.Islands.Errors.HasErrors() {
		logger.Warn(ctx, nil, "Some islands failed to bundle", "failures", report.Islands.Errors.Summary())
	}
	if report.Styles != nil && len(report.Styles.Skipped) > 0 {
		logger.Warn(ctx, nil, "Some style modules were skipped", "files", strings.Join(report.Styles.Skipped, ", "))
	}

	printf(cmd, "Built %d pages, %d documents and %d islands into %s in %s\n",
		len(report.Pages), len(report.Documents), len(report.Islands.Built),
		cfg.Paths.Output, report.Duration.Round(time.Millisecond))
	return nil
}
