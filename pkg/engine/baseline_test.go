package engine

import (
	"path/filepath"
	"testing"
)

func accepted(kind string, sev Severity, loc Location) AcceptedFinding {
	return AcceptedFinding{
		Finding:           NewFinding(kind, sev, loc, "", 0.5),
		AgreementScore:    1,
		ContributingRoles: []Role{RoleVulnerability},
		ResolvedSeverity:  sev,
	}
}

func TestBaselineRoundTripAndCompare(t *testing.T) {
	baseline := &ConsensusReport{
		SubjectID: "Vault.sol",
		Accepted: []AcceptedFinding{
			accepted("reentrancy", SeverityHigh, fn("withdraw")),
			accepted("tx_origin", SeverityMedium, fn("auth")),
		},
	}
	path := filepath.Join(t.TempDir(), "reports", "baseline.json")
	if err := SaveReport(path, baseline); err != nil {
		t.Fatalf("Failed to save baseline: %v", err)
	}
	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("Failed to load baseline: %v", err)
	}
	if loaded.SubjectID != "Vault.sol" || len(loaded.Accepted) != 2 {
		t.Fatalf("Unexpected loaded report %+v", loaded)
	}

	current := &ConsensusReport{
		Accepted: []AcceptedFinding{
			accepted("reentrancy", SeverityCritical, fn("Vault.withdraw(uint256)")),
			accepted("price_manipulation", SeverityHigh, Location{}),
		},
	}
	diff := Compare(loaded, current)

	if len(diff.Unchanged) != 1 || diff.Unchanged[0].Finding.Kind != "reentrancy" {
		t.Errorf("Expected reentrancy unchanged, got %+v", diff.Unchanged)
	}
	if len(diff.New) != 1 || diff.New[0].Finding.Kind != "price_manipulation" {
		t.Errorf("Expected price_manipulation new, got %+v", diff.New)
	}
	if len(diff.Fixed) != 1 || diff.Fixed[0].Finding.Kind != "tx_origin" {
		t.Errorf("Expected tx_origin fixed, got %+v", diff.Fixed)
	}
	if !diff.Regressed(SeverityHigh) || diff.Regressed(SeverityCritical) {
		t.Errorf("Unexpected regression result")
	}
}

func TestLoadReportErrors(t *testing.T) {
	if _, err := LoadReport(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
