package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avaloki108/Slitheryn/pkg/adk"
	"github.com/avaloki108/Slitheryn/pkg/engine"
	"github.com/avaloki108/Slitheryn/pkg/orchestrator"
)

type stubProvider struct{ response string }

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Infer(ctx context.Context, model, prompt string, opts adk.Options) (string, error) {
	return s.response, nil
}

func (s stubProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"SmartLLM-OG:latest"}, nil
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	orch := orchestrator.New(stubProvider{response: `{"findings":[{"kind":"reentrancy","severity":"High","location":"withdraw"}]}`}, nil, orchestrator.DefaultConfig())
	server := httptest.NewServer(newAPIHandler(orch, nil, true))
	t.Cleanup(server.Close)
	return server
}

func TestAPIAnalyze(t *testing.T) {
	server := newTestAPI(t)
	body := `{"subject_id":"Vault.sol","code":"contract Vault {}","roles":["vulnerability","exploit"],"threshold":1}`
	resp, err := http.Post(server.URL+"/api/analyze", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var report engine.ConsensusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.SubjectID != "Vault.sol" || len(report.Accepted) != 1 || report.Accepted[0].AgreementScore != 1 {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestAPIAnalyzeRejectsInvalidRequests(t *testing.T) {
	server := newTestAPI(t)
	for _, body := range []string{
		`{"code":"x","threshold":1.1}`,
		`{"code":"x","roles":["oracle"]}`,
		`{"code":"x","mode":"deep"}`,
		`{"code":`,
	} {
		resp, err := http.Post(server.URL+"/api/analyze", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", body, resp.StatusCode)
		}
	}

	resp, err := http.Get(server.URL + "/api/analyze")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/analyze: status %d", resp.StatusCode)
	}
}

func TestAPIStatus(t *testing.T) {
	server := newTestAPI(t)
	resp, err := http.Get(server.URL + "/api/status?probe=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var st orchestrator.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Provider != "stub" || !st.Reachable || !st.ModelsAvailable["SmartLLM-OG:latest"] {
		t.Errorf("Unexpected status %+v", st)
	}
}

func TestAnalyzeBodyRoles(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"omitted roles run every role", `{"code":"x"}`, len(engine.AllRoles())},
		{"explicit empty roles stay empty", `{"code":"x","roles":[]}`, 0},
		{"listed roles", `{"code":"x","roles":["fix"]}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body analyzeBody
			if err := json.Unmarshal([]byte(tt.body), &body); err != nil {
				t.Fatal(err)
			}
			req, err := body.request(true)
			if err != nil {
				t.Fatal(err)
			}
			if len(req.Roles) != tt.want {
				t.Errorf("Expected %d roles, got %v", tt.want, req.Roles)
			}
		})
	}
}

func TestAPIAnalyzeEmptyRoles(t *testing.T) {
	server := newTestAPI(t)
	resp, err := http.Post(server.URL+"/api/analyze", "application/json", strings.NewReader(`{"subject_id":"Empty.sol","code":"x","roles":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var report engine.ConsensusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if len(report.AgentsInvoked) != 0 || len(report.Accepted) != 0 {
		t.Errorf("Expected an empty report, got %+v", report)
	}
}
