package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uimigrate/internal/config"
	"github.com/matzehuels/uimigrate/pkg/batch"
	"github.com/matzehuels/uimigrate/pkg/ledger"
	"github.com/matzehuels/uimigrate/pkg/phases"
	"github.com/matzehuels/uimigrate/pkg/pipeline"
	"github.com/matzehuels/uimigrate/pkg/scan"
	"github.com/matzehuels/uimigrate/pkg/transform"
)

// migrateFlags holds the command-line overrides for a migration run.
type migrateFlags struct {
	out                string
	workers            int
	threshold          float64
	maxAttempts        int
	proceedOnExhausted bool
	noCache            bool
	ledgerPath         string
	fresh              bool
	report             string
}

// apply copies flags the user set onto cfg.
func (f *migrateFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Batch.Workers = f.workers
	}
	if flags.Changed("threshold") {
		cfg.Pipeline.Threshold = f.threshold
	}
	if flags.Changed("max-attempts") {
		cfg.Pipeline.MaxAttempts = f.maxAttempts
	}
	if flags.Changed("proceed-on-exhausted") {
		cfg.Pipeline.ProceedOnExhausted = f.proceedOnExhausted
	}
	return cfg.Validate()
}

// migrateCommand creates the migrate command.
func (c *CLI) migrateCommand() *cobra.Command {
	flags := &migrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate [file|dir]",
		Short: "Migrate ExtJS sources to Angular",
		Long: `Migrate an ExtJS file or every source file under a directory.

Each unit runs through analysis, conversion and storage. Dependencies of a
unit are discovered first and queued behind it. The ledger is saved after
every unit; running migrate without an argument resumes the saved queue.`,
		Example: `  uimigrate migrate app/view/UserGrid.js --out ../web
  uimigrate migrate app/ --out ../web --workers 4
  uimigrate migrate --out ../web   # resume`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return c.runMigrate(cmd, source, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Angular project root to write files into (required)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 1, "units migrated concurrently")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", pipeline.DefaultThreshold, "success factor required per phase (0-100)")
	cmd.Flags().IntVar(&flags.maxAttempts, "max-attempts", pipeline.DefaultMaxAttempts, "quality attempts per phase")
	cmd.Flags().BoolVar(&flags.proceedOnExhausted, "proceed-on-exhausted", false, "continue with the best artifact when a phase exhausts its attempts")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the transform response cache")
	cmd.Flags().StringVar(&flags.ledgerPath, "ledger", "", "ledger file (default from config: "+ledger.DefaultPath+")")
	cmd.Flags().BoolVar(&flags.fresh, "fresh", false, "discard the saved ledger and start over")
	cmd.Flags().StringVar(&flags.report, "report", "", "write the run summary and validation report as JSON")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// migrationReport is written by --report.
type migrationReport struct {
	Summary    *batch.Summary  `json:"summary"`
	Validation pipeline.Report `json:"validation_report"`
}

func (c *CLI) runMigrate(cmd *cobra.Command, source string, flags *migrateFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := flags.apply(cmd, cfg); err != nil {
		return err
	}

	store, err := c.openLedgerStore(ctx, cfg, flags.ledgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	l, err := ledger.Open(ctx, store)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", store.Location(), err)
	}
	if flags.fresh {
		l.Clear()
		logger.Info("ledger cleared", "location", store.Location())
	}
	if source == "" && l.Len() == 0 {
		printInfo("Nothing to resume in %s", store.Location())
		printNextStep("Start a migration", "uimigrate migrate <file|dir> --out <dir>")
		return nil
	}

	baseDir, err := resolverBase(source, l.SourceRoot())
	if err != nil {
		return err
	}
	l.SetSourceRoot(baseDir)

	responses, err := c.newCache(ctx, cfg, flags.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer responses.Close()

	capability, err := c.newCapability(ctx, cfg, responses)
	if err != nil {
		return err
	}
	defer transform.Close(capability)

	resolver, err := c.newResolver(cfg, baseDir)
	if err != nil {
		return err
	}

	popts := pipeline.Options{
		Threshold:          cfg.Pipeline.Threshold,
		MaxAttempts:        cfg.Pipeline.MaxAttempts,
		ProceedOnExhausted: cfg.Pipeline.ProceedOnExhausted,
	}
	stages := phases.New(capability, phases.Options{
		OutDir:         flags.out,
		AngularVersion: cfg.Pipeline.AngularVersion,
		UIFramework:    cfg.Pipeline.UIFramework,
		Logger:         logger,
	})
	runner, err := pipeline.NewRunner(stages, phases.NewScorer(capability, popts), popts, logger)
	if err != nil {
		return err
	}

	cacheHits, calls, restore := installHooks(cfg.Batch.Workers == 1)
	defer restore()

	b := &batch.Runner{
		Ledger:   l,
		Store:    store,
		Resolver: resolver,
		Pipeline: runner,
		Scan:     scan.Options{Extension: cfg.Deps.Extension, UseGitignore: cfg.Deps.UseGitignore},
		Workers:  cfg.Batch.Workers,
		Logger:   logger,
		Progress: printUnitReport,
	}

	printInfo("Migrating %s into %s", describeSource(source), flags.out)
	summary, runErr := b.Run(ctx, source)
	if summary == nil {
		return runErr
	}

	printNewline()
	printStatistics(summary.Statistics)
	report := runner.History.Report()
	printKeyValue("Validations", fmt.Sprintf("%d (%d passed, %d below threshold)", report.TotalValidations, report.PassedPhases, report.FailedPhases))
	printKeyValue("Avg success factor", fmt.Sprintf("%.2f", report.AverageSuccessFactor))
	printKeyValue("Transform calls", fmt.Sprintf("%d (%d cached, %d failed)", calls.calls.Load(), cacheHits.hits.Load(), calls.errors.Load()))
	printKeyValue("Ledger", store.Location())

	if flags.report != "" {
		if err := writeReport(flags.report, migrationReport{Summary: summary, Validation: report}); err != nil {
			return err
		}
		printFile(flags.report)
	}

	if summary.Interrupted {
		printNewline()
		printWarning("Interrupted with %d units remaining", summary.Statistics.RemainingInQueue)
		printNextStep("Resume with", "uimigrate migrate --out "+flags.out)
		return runErr
	}
	if runErr != nil {
		return runErr
	}
	if summary.Statistics.TotalFailed > 0 {
		printNewline()
		printNextStep("Retry failed units", "uimigrate ledger retry && uimigrate migrate --out "+flags.out)
	}
	return nil
}

// resolverBase is the directory references are resolved against: the source
// directory itself or the directory of a source file. A resumed run uses the
// root saved in the ledger, falling back to the working directory for
// ledgers written without one.
func resolverBase(source, saved string) (string, error) {
	if source == "" {
		if saved != "" {
			return saved, nil
		}
		return os.Getwd()
	}
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("source %s: %w", source, err)
	}
	if info.IsDir() {
		return source, nil
	}
	return filepath.Dir(source), nil
}

func describeSource(source string) string {
	if source == "" {
		return "the saved queue"
	}
	return source
}

func writeReport(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
