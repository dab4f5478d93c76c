package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/config"
	"github.com/avaloki108/Slitheryn/pkg/engine"
	"github.com/avaloki108/Slitheryn/pkg/selector"
)

func newFlagCmd(t *testing.T, args ...string) (*cobra.Command, analyzeOptions) {
	t.Helper()
	var o analyzeOptions
	cmd := &cobra.Command{Use: "analyze"}
	cmd.Flags().Float64Var(&o.threshold, "threshold", 0.7, "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd, o
}

func TestBuildRequestUsesConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.EnabledRoles = []string{"vulnerability", "fix"}
	cmd, o := newFlagCmd(t)

	req, err := buildRequest(cmd, cfg, "contracts/Vault.sol", []byte("contract Vault {}"), o)
	if err != nil {
		t.Fatal(err)
	}
	if req.SubjectID != "Vault.sol" || req.Context["contract_name"] != "Vault" {
		t.Errorf("Unexpected subject/context: %q %v", req.SubjectID, req.Context)
	}
	if !reflect.DeepEqual(req.Roles, []engine.Role{engine.RoleVulnerability, engine.RoleFix}) {
		t.Errorf("Roles = %v", req.Roles)
	}
	if req.Threshold != nil {
		t.Errorf("Threshold should be left to the orchestrator default, got %v", *req.Threshold)
	}
	if req.Mode != selector.ModeComprehensive || !req.Parallel {
		t.Errorf("Unexpected mode/parallel %v %v", req.Mode, req.Parallel)
	}
}

func TestBuildRequestFlagsOverride(t *testing.T) {
	cfg := config.Default()
	cmd, o := newFlagCmd(t, "--threshold", "0.4")
	o.roles = []string{"Exploit"}
	o.mode = "quick"
	o.sequential = true
	o.timeout = 10 * time.Second
	o.context = map[string]string{"compiler_version": "0.8.19"}

	req, err := buildRequest(cmd, cfg, "-", []byte("code"), o)
	if err != nil {
		t.Fatal(err)
	}
	if req.Threshold == nil || *req.Threshold != 0.4 {
		t.Errorf("threshold flag ignored: %v", req.Threshold)
	}
	if req.Parallel || req.Mode != selector.ModeQuick || req.PerAgentTimeout != 10*time.Second {
		t.Errorf("Unexpected request %+v", req)
	}
	if req.Context["compiler_version"] != "0.8.19" || req.SubjectID != "" {
		t.Errorf("Unexpected context/subject %v %q", req.Context, req.SubjectID)
	}

	o.roles = []string{"oracle"}
	if _, err := buildRequest(cmd, cfg, "-", nil, o); err == nil {
		t.Error("expected unknown role error")
	}
}

func TestRenderReport(t *testing.T) {
	report := engine.NewConsensusEngine(nil).Reduce([]engine.AgentResult{
		{Role: engine.RoleVulnerability, ModelUsed: "m", Status: engine.StatusOk, Findings: []engine.Finding{
			engine.NewFinding("reentrancy", engine.SeverityCritical, engine.Location{Function: "withdraw"}, "external call before update", 0.9),
		}},
		{Role: engine.RoleExploit, ModelUsed: "m", Status: engine.StatusTimedOut, Reason: "deadline exceeded"},
	}, 0.5)
	report.SubjectID = "Vault.sol"
	report.Results = []engine.AgentResult{{Role: engine.RoleExploit, Status: engine.StatusTimedOut, Reason: "deadline exceeded"}}

	out := renderReport(&report)
	for _, want := range []string{"Vault.sol", "reentrancy", "withdraw", "external call before update", "deadline exceeded"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q:\n%s", want, out)
		}
	}
}

func newOllamaStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			w.Write([]byte(`{"response":"{\"findings\":[{\"kind\":\"reentrancy\",\"severity\":\"High\",\"location\":\"withdraw\"}]}","done":true}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"SmartLLM-OG:latest"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunAnalyzeJSONKeepsStdoutClean(t *testing.T) {
	server := newOllamaStub(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "Vault.sol")
	if err := os.WriteFile(source, []byte("contract Vault {}"), 0644); err != nil {
		t.Fatal(err)
	}

	var diag bytes.Buffer
	prevDiag, prevDebug := adk.Diagnostics, adk.DebugEnabled
	adk.Diagnostics, adk.DebugEnabled = &diag, true
	t.Cleanup(func() { adk.Diagnostics, adk.DebugEnabled = prevDiag, prevDebug })

	cfg := config.Default()
	cfg.SetBaseURL("ollama", server.URL)

	for run := 0; run < 2; run++ {
		cmd, o := newFlagCmd(t)
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		o.roles = []string{"vulnerability", "exploit"}
		o.jsonOut = true
		o.outFile = filepath.Join(dir, "report.json")
		o.baseline = filepath.Join(dir, "baseline.json")

		if err := runAnalyze(cmd, cfg, source, o); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		var report map[string]interface{}
		if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
			t.Fatalf("run %d: stdout is not a single JSON report: %v\n%s", run, err, stdout.String())
		}
		if report["subject_id"] != "Vault.sol" {
			t.Errorf("run %d: unexpected subject %v", run, report["subject_id"])
		}
		if run == 1 && !strings.Contains(stderr.String(), "Unchanged: 1") {
			t.Errorf("baseline comparison should go to stderr, got %q", stderr.String())
		}
	}

	for _, want := range []string{"[DEBUG]", "Report written to", "Baseline saved to"} {
		if !strings.Contains(diag.String(), want) {
			t.Errorf("diagnostics missing %q:\n%s", want, diag.String())
		}
	}
}
