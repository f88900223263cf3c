package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/voicecheck/internal/analysis"
	"github.com/your-org/voicecheck/pkg/config"
	"github.com/your-org/voicecheck/pkg/detector"
	"github.com/your-org/voicecheck/pkg/logger"
	"github.com/your-org/voicecheck/pkg/tracing"
)

// Global flags
var (
	logLevelFlag string
	demoFlag     bool
	deadlineFlag time.Duration
)

// app holds what every subcommand shares. It is built before any command runs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *analysis.Service

	shutdownTracing func(context.Context) error
}

var cli = &app{}

var rootCmd = &cobra.Command{
	Use:   "voicecheck",
	Short: "Check voice clips for synthetic speech",
	Long: `voicecheck submits audio clips to the remote deepfake detector and renders a
local risk timeline next to the verdict.

The detector credential and endpoint come from the environment (RD_API_KEY,
RD_BASE). RD_DEMO=1 or --demo returns a canned inconclusive answer without
any network call.

Examples:
  voicecheck analyze clip.wav --png risk.png
  voicecheck timeline clip.wav --frames
  voicecheck status 7f3c0b2e
  ls *.wav | voicecheck watch`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (overrides APP_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&demoFlag, "demo", false, "Demo mode: skip the remote detector")
	rootCmd.PersistentFlags().DurationVar(&deadlineFlag, "deadline", 0, "Overall analysis deadline (overrides ANALYSIS_DEADLINE)")

	rootCmd.AddCommand(analyzeCmd, timelineCmd, statusCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevelFlag != "" {
		cfg.App.LogLevel = logLevelFlag
	}
	if demoFlag {
		cfg.Detector.Demo = true
	}
	if deadlineFlag > 0 {
		cfg.Analysis.Deadline = deadlineFlag
	}

	logr, err := logger.Build(cfg.App.LogLevel, logger.FormatConsole)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	shutdown, err := tracing.Init(cmd.Context(), tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  tracing.ParseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name + "-cli",
		Version:     cfg.App.Version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	dcfg := analysis.DetectorConfig(cfg)
	dcfg.Logger = logr

	cli.cfg = cfg
	cli.logger = logr
	cli.shutdownTracing = shutdown
	cli.service = analysis.NewService(analysis.Params{
		Client:  detector.New(dcfg),
		Logger:  logr,
		Options: analysis.OptionsFromConfig(cfg),
	})
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if cli.logger != nil {
		defer cli.logger.Sync() //nolint:errcheck
	}
	if cli.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
		defer cancel()
		return cli.shutdownTracing(ctx)
	}
	return nil
}
