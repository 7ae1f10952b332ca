// Command interview runs a full pre-diagnosis interview from the terminal,
// either against a simulated patient backed by a dataset case or with a human
// typing the answers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prediagnosis/internal/core"
	"prediagnosis/internal/guidance"
	"prediagnosis/internal/llm"
	"prediagnosis/internal/sim"
)

type options struct {
	dataset     string
	caseIndex   int
	maxSteps    int
	threshold   float64
	policy      string
	logDir      string
	guidanceDir string
	interactive bool
	verbose     bool
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run a pre-diagnosis interview session from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "path to a JSON patient-case dataset (required unless --interactive)")
	cmd.Flags().IntVar(&opts.caseIndex, "case-index", 0, "index of the case to simulate")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", core.DefaultMaxSteps, "interview turn budget")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", core.DefaultCompletionThreshold, "task completion threshold")
	cmd.Flags().StringVar(&opts.policy, "policy", string(core.PolicySequential), "task selection policy (sequential, fixed, score_driven, adaptive)")
	cmd.Flags().StringVar(&opts.logDir, "log-dir", "logs", "directory for per-session interview logs")
	cmd.Flags().StringVar(&opts.guidanceDir, "guidance-dir", "guidance", "directory holding department guidance files")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "answer the questions yourself instead of simulating a patient")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "debug-level logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	logger, err := buildLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	llmClient := llm.NewClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"), logger)
	loader := guidance.NewLoader(opts.guidanceDir, logger)

	collector, err := buildCollector(opts, llmClient)
	if err != nil {
		return err
	}

	sessionID := uuid.New().String()
	sessionGuidance := guidance.NewSessionGuidance(loader, llmClient)
	wf := core.NewWorkflow(sessionID, core.DefaultCatalog(), core.Deps{
		Assessor:  llmClient,
		Updater:   llmClient,
		Questions: llmClient,
		Guidance:  sessionGuidance,
		Triager:   llmClient,
		OnTriage:  sessionGuidance.SetTriage,
	}, core.Config{
		MaxSteps:            opts.maxSteps,
		CompletionThreshold: opts.threshold,
		Policy:              core.ParseSelectorPolicy(opts.policy),
	}, logger)

	recorder, err := sim.NewRecorder(opts.logDir, sessionID)
	if err != nil {
		return fmt.Errorf("open interview log: %w", err)
	}
	defer func() { _ = recorder.Close() }()
	logger.Info("interview starting",
		zap.String("session_id", sessionID), zap.String("log_file", recorder.Path()))

	runner := &sim.Runner{Workflow: wf, Collector: collector, Recorder: recorder, Log: logger}
	status, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, sim.ErrQuit) {
		return err
	}

	out, merr := json.MarshalIndent(status, "", "  ")
	if merr != nil {
		return merr
	}
	fmt.Println(string(out))
	return nil
}

func buildCollector(opts options, llmClient *llm.Client) (core.ResponseCollector, error) {
	if opts.interactive {
		return &sim.InteractivePatient{In: os.Stdin, Out: os.Stdout}, nil
	}
	if opts.dataset == "" {
		return nil, errors.New("either --dataset or --interactive is required")
	}
	patientCase, err := sim.LoadCase(opts.dataset, opts.caseIndex)
	if err != nil {
		return nil, err
	}
	return &sim.ModelPatient{Model: llmClient.Patient(patientCase)}, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
