package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/attest"
	"github.com/avaloki108/Slitheryn/pkg/config"
	"github.com/avaloki108/Slitheryn/pkg/engine"
	"github.com/avaloki108/Slitheryn/pkg/orchestrator"
	"github.com/avaloki108/Slitheryn/pkg/selector"
)

type analyzeOptions struct {
	roles       []string
	mode        string
	threshold   float64
	sequential  bool
	timeout     time.Duration
	deadline    time.Duration
	workers     int
	context     map[string]string
	subject     string
	jsonOut     bool
	plain       bool
	baseline    string
	outFile     string
	sign        bool
	checkModels bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Run the agents over a source file and print the consensus report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		return runAnalyze(cmd, cfg, args[0], analyzeOpts)
	},
}

func readSource(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// buildRequest merges flags over the configured defaults.
func buildRequest(cmd *cobra.Command, cfg *config.Config, path string, code []byte, o analyzeOptions) (orchestrator.Request, error) {
	req := orchestrator.Request{
		SubjectID:       o.subject,
		Code:            string(code),
		Context:         map[string]string{},
		Parallel:        cfg.Analysis.Parallel && !o.sequential,
		PerAgentTimeout: o.timeout,
	}
	if req.SubjectID == "" && path != "-" {
		req.SubjectID = filepath.Base(path)
	}
	if path != "-" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		req.Context["contract_name"] = name
	}
	for k, v := range o.context {
		req.Context[k] = v
	}

	if len(o.roles) > 0 {
		for _, name := range o.roles {
			r, err := engine.ParseRole(name)
			if err != nil {
				return req, err
			}
			req.Roles = append(req.Roles, r)
		}
	} else {
		roles, err := cfg.Roles()
		if err != nil {
			return req, err
		}
		req.Roles = roles
	}

	mode := cfg.Analysis.DefaultMode
	if o.mode != "" {
		mode = o.mode
	}
	m, err := selector.ParseMode(mode)
	if err != nil {
		return req, err
	}
	req.Mode = m

	if cmd != nil && cmd.Flags().Changed("threshold") {
		req.Threshold = orchestrator.Threshold(o.threshold)
	}
	return req, nil
}

func runAnalyze(cmd *cobra.Command, cfg *config.Config, path string, o analyzeOptions) error {
	code, err := readSource(path)
	if err != nil {
		return fmt.Errorf("error reading source: %w", err)
	}
	if o.workers > 0 {
		cfg.Analysis.MaxWorkers = o.workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	req, err := buildRequest(cmd, cfg, path, code, o)
	if err != nil {
		return err
	}

	orch, provider, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider(provider)

	if o.checkModels {
		missing, err := orch.PruneUnavailable(ctx)
		if err != nil {
			adk.Warnf("could not check model availability: %v", err)
		} else if len(missing) > 0 {
			adk.Warnf("models not available, using fallbacks: %s", strings.Join(missing, ", "))
		}
	}

	adk.Debugf("analyzing %s with %d roles (mode %s, parallel %v)", req.SubjectID, len(req.Roles), req.Mode, req.Parallel)
	report, err := orch.Analyze(ctx, req)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case o.jsonOut:
		fmt.Fprintln(out, string(data))
	case o.plain:
		fmt.Fprint(out, report.Summary())
	default:
		fmt.Fprint(out, renderReport(report))
	}

	if o.baseline != "" {
		diffOut := out
		if o.jsonOut {
			diffOut = cmd.ErrOrStderr()
		}
		if err := compareBaseline(diffOut, o.baseline, report); err != nil {
			return err
		}
	}

	if o.outFile != "" {
		if err := os.WriteFile(o.outFile, data, 0644); err != nil {
			return fmt.Errorf("error writing report: %w", err)
		}
		adk.Infof("Report written to %s", o.outFile)
	}
	if o.sign {
		if err := signReport(cfg, data, o.outFile); err != nil {
			return err
		}
	}
	return nil
}

// compareBaseline prints the diff against an existing baseline, or saves the
// report as the baseline when none exists yet.
func compareBaseline(out io.Writer, path string, report *engine.ConsensusReport) error {
	baseline, err := engine.LoadReport(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := engine.SaveReport(path, report); err != nil {
			return fmt.Errorf("error saving baseline: %w", err)
		}
		adk.Infof("Baseline saved to %s", path)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprint(out, "\n"+renderDiff(path, engine.Compare(baseline, report)))
	return nil
}

// signReport writes <report>.asc next to the report file.
func signReport(cfg *config.Config, data []byte, reportPath string) error {
	if reportPath == "" {
		return fmt.Errorf("--sign requires --out")
	}
	if cfg.Signing.KeyFile == "" {
		return fmt.Errorf("no signing key configured (set signing.key_file or run 'slitheryn keygen')")
	}
	signer, err := attest.LoadSigner(cfg.Signing.KeyFile, cfg.SigningPassphrase())
	if err != nil {
		return err
	}
	sig, err := signer.SignBytes(data)
	if err != nil {
		return err
	}
	sigPath := reportPath + ".asc"
	if err := os.WriteFile(sigPath, sig, 0644); err != nil {
		return fmt.Errorf("error writing signature: %w", err)
	}
	adk.Infof("Signature written to %s (key %s)", sigPath, signer.KeyID())
	return nil
}

func init() {
	f := analyzeCmd.Flags()
	f.StringSliceVarP(&analyzeOpts.roles, "roles", "r", nil, "Agent roles to run (default: analysis.enabled_roles)")
	f.StringVarP(&analyzeOpts.mode, "mode", "m", "", "Analysis mode: quick, comprehensive or specialized")
	f.Float64VarP(&analyzeOpts.threshold, "threshold", "t", 0.7, "Consensus threshold in [0,1] (default: analysis.consensus_threshold)")
	f.BoolVar(&analyzeOpts.sequential, "sequential", false, "Run agents one after another")
	f.DurationVar(&analyzeOpts.timeout, "timeout", 0, "Per-agent timeout (default: analysis.agent_timeout)")
	f.DurationVar(&analyzeOpts.deadline, "deadline", 0, "Overall deadline; agents still running are cancelled and a partial report is produced")
	f.IntVarP(&analyzeOpts.workers, "workers", "w", 0, "Maximum concurrent agents (default: analysis.max_workers)")
	f.StringToStringVarP(&analyzeOpts.context, "context", "c", nil, "Extra context for the prompt, e.g. -c compiler_version=0.8.19")
	f.StringVar(&analyzeOpts.subject, "subject", "", "Subject id recorded in the report (default: file name)")
	f.BoolVar(&analyzeOpts.jsonOut, "json", false, "Print the report as JSON")
	f.BoolVar(&analyzeOpts.plain, "plain", false, "Print the report as unstyled text")
	f.StringVar(&analyzeOpts.baseline, "baseline", "", "Compare against this baseline report, saving it first if missing")
	f.StringVarP(&analyzeOpts.outFile, "out", "o", "", "Also write the JSON report to this file")
	f.BoolVar(&analyzeOpts.sign, "sign", false, "Write a detached OpenPGP signature of the report (requires --out)")
	f.BoolVar(&analyzeOpts.checkModels, "check-models", false, "Skip configured models the service does not serve")
	rootCmd.AddCommand(analyzeCmd)
}
