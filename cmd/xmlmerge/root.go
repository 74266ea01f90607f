package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dannyswat/xmlmerge"
	"github.com/dannyswat/xmlmerge/internal/config"
	"github.com/dannyswat/xmlmerge/internal/discovery"
	"github.com/dannyswat/xmlmerge/internal/logging"
	"github.com/dannyswat/xmlmerge/internal/pipeline"
	"github.com/dannyswat/xmlmerge/internal/report"
	"github.com/dannyswat/xmlmerge/internal/ymap"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitConflict  = 2
	exitInterrupt = 130
)

// errConflicts marks a run where fail_on_conflict rejected at least one document.
type errConflicts struct {
	err error
}

func (e *errConflicts) Error() string { return e.err.Error() }
func (e *errConflicts) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ce *errConflicts
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ce):
		return exitConflict
	case errors.Is(err, context.Canceled):
		return exitInterrupt
	default:
		return exitFailure
	}
}

type flags struct {
	config   string
	original string
	mods     []string
	output   string
	strategy string
	workers  int
	report   string
	logLevel string
}

func newRootCmd(fs afero.Fs, stdout io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "xmlmerge",
		Short: "Merge modified copies of XML documents into their original",
		Long: `xmlmerge compares every document in the original directory with the
copies of the same file in each mod directory and writes a single merged
document per file to the output directory. Elements are matched by their guid
where they have one, and conflicting edits are settled by the chosen strategy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, fs, f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), fs, stdout, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "TOML file with default settings")
	fl.StringVar(&f.original, "original", "", "directory holding the original documents")
	fl.StringSliceVar(&f.mods, "mods", nil, "mod directories, in merge order (repeat or comma separate)")
	fl.StringVar(&f.output, "output", "", "directory to write merged documents to")
	fl.StringVar(&f.strategy, "strategy", xmlmerge.LastWins.String(), "conflict strategy: first_wins, last_wins or fail_on_conflict")
	fl.IntVar(&f.workers, "workers", config.DefaultWorkers, "documents merged in parallel")
	fl.StringVar(&f.report, "report", "", "write a YAML report to this file")
	fl.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")
	return cmd
}

// resolveConfig applies explicitly set flags over the config file, and the
// config file over the defaults.
func resolveConfig(cmd *cobra.Command, fs afero.Fs, f flags) (config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		loaded, err := config.Load(fs, f.config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("original") {
		cfg.Original = f.original
	}
	if changed("mods") {
		cfg.Mods = f.mods
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("strategy") {
		s, err := xmlmerge.ParseStrategy(f.strategy)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Strategy = s
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("report") {
		cfg.Report = f.report
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, fs afero.Fs, stdout io.Writer, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sets, err := discovery.Scan(fs, cfg.Original, cfg.Mods)
	if err != nil {
		return err
	}
	printer := report.NewPrinter(stdout)
	printer.Discovery(sets)
	logger.Debug("discovered documents", zap.Int("files", len(sets)), zap.Stringer("strategy", cfg.Strategy))

	runner := &pipeline.Runner{
		FS:             fs,
		Logger:         logger,
		Strategy:       cfg.Strategy,
		Workers:        cfg.Workers,
		Output:         cfg.Output,
		PostProcessors: []xmlmerge.PostProcessor{ymap.Processor{}},
	}
	outcomes, runErr := runner.Run(ctx, sets)
	printer.Outcomes(outcomes)

	if cfg.Report != "" {
		if err := writeReport(fs, cfg, outcomes); err != nil {
			return err
		}
	}

	if runErr != nil && len(pipeline.ConflictFailures(outcomes)) > 0 {
		return &errConflicts{err: runErr}
	}
	return runErr
}

func writeReport(fs afero.Fs, cfg config.Config, outcomes []pipeline.Outcome) error {
	f, err := fs.Create(cfg.Report)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	defer f.Close()
	return report.WriteYAML(f, report.Build(cfg.Strategy, outcomes))
}
