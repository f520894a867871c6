package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"modsecsync/config"
	"modsecsync/deploy"
	"modsecsync/logging"
	"modsecsync/rulestore"
	"modsecsync/secrule"
	"modsecsync/telemetry"
	"modsecsync/updater"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "modsecsync",
		Short:         "Synchronize high paranoia CRS rules into a custom ModSecurity ruleset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "loglevel", "info", "log level: debug, info, warn, error, fatal, panic")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newSyncCommand(opts))
	return root
}

type rootOptions struct {
	logLevel   string
	configPath string
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var telemetryPath string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass and reload the enforcement point",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}

			cfg := config.Default()
			if opts.configPath != "" {
				if cfg, err = config.Load(opts.configPath); err != nil {
					logger.Error().Err(err).Msg("Error while loading config")
					return err
				}
			}

			return runSyncPass(cmd.Context(), logger, cfg, telemetryPath, dryRun)
		},
	}

	cmd.Flags().StringVar(&telemetryPath, "telemetry", "", "path to a JSON export of triggered-rule observations; restricts and orders the pass")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "append to the store but skip the deployment trigger")
	return cmd
}

// Dependency injection composition root for one synchronization pass.
func runSyncPass(ctx context.Context, logger zerolog.Logger, cfg config.Main, telemetryPath string, dryRun bool) error {
	fileSystem := &rulestore.FileSystemImpl{}
	parser := secrule.NewRuleParser()
	filter := secrule.NewRuleFilter(logger)
	namespacer := secrule.NewNamespacer()
	loader := secrule.NewFileRuleLoader(logger, parser, filter, secrule.NewRuleLoaderFileSystem())
	store := rulestore.NewStore(logger, fileSystem, cfg.CustomRules)

	var trigger updater.DeploymentTrigger
	if dryRun {
		trigger = &dryRunTrigger{logger: logger}
	} else {
		runner := deploy.NewCommandRunner(cfg.CommandTimeout())
		trigger = deploy.NewDockerTrigger(logger, runner, fileSystem, namespacer, cfg.Container.Name, cfg.Exclusions, cfg.Container.DeployedRules)
	}

	resultsLogger := logging.NewZerologResultsLogger(logger)
	engine := updater.NewSyncEngine(logger, loader, namespacer, store, trigger, resultsLogger, cfg.RuleSource)

	candidates, err := loadCandidates(logger, telemetryPath, cfg.MinParanoiaLevel)
	if err != nil {
		logger.Error().Err(err).Msg("Error while loading telemetry export")
		return err
	}

	result := engine.Run(ctx, candidates)
	if len(result.Errors) > 0 {
		return fmt.Errorf("synchronization pass finished with %d error(s), first: %v", len(result.Errors), result.Errors[0])
	}

	return nil
}

func loadCandidates(logger zerolog.Logger, telemetryPath string, minParanoiaLevel int) ([]updater.Candidate, error) {
	if telemetryPath == "" {
		return nil, nil
	}

	f, err := os.Open(telemetryPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hits, err := telemetry.ReadExport(f)
	if err != nil {
		return nil, err
	}

	joined := telemetry.Join(logger, hits, minParanoiaLevel)
	candidates := make([]updater.Candidate, 0, len(joined))
	for _, c := range joined {
		candidates = append(candidates, updater.Candidate{RuleID: c.RuleID, TriggerCount: c.TriggerCount})
	}

	return candidates, nil
}

func newLogger(level string) (zerolog.Logger, error) {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %v", level, err)
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(l).With().Timestamp().Logger(), nil
}

// dryRunTrigger stands in for the Docker trigger when --dry-run is given.
type dryRunTrigger struct {
	logger zerolog.Logger
}

func (t *dryRunTrigger) Deploy(ctx context.Context, ruleIDs []string) error {
	t.logger.Info().Int("rules", len(ruleIDs)).Msg("Dry run, skipping deployment trigger")
	return nil
}
