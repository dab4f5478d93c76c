package engine

import (
	"reflect"
	"testing"
)

func ok(role Role, findings ...Finding) AgentResult {
	return AgentResult{Role: role, ModelUsed: "model-" + string(role), Status: StatusOk, Findings: findings}
}

func failed(role Role, status Status) AgentResult {
	return AgentResult{Role: role, ModelUsed: "model-" + string(role), Status: status, Reason: "boom"}
}

func fn(name string) Location { return Location{Function: name} }

func TestReduceReentrancyScenario(t *testing.T) {
	results := []AgentResult{
		ok(RoleVulnerability, NewFinding("reentrancy", SeverityHigh, fn("withdraw()"), "external call before update", 0.8)),
		ok(RoleExploit, NewFinding("reentrancy", SeverityCritical, fn("withdraw()"), "drain via fallback", 0.9)),
	}

	report := NewConsensusEngine(nil).Reduce(results, 0.5)

	if len(report.Accepted) != 1 {
		t.Fatalf("Expected 1 accepted finding, got %d", len(report.Accepted))
	}
	got := report.Accepted[0]
	if got.ResolvedSeverity != SeverityCritical {
		t.Errorf("Expected Critical, got %s", got.ResolvedSeverity)
	}
	if got.AgreementScore != 1.0 {
		t.Errorf("Expected agreement 1.0, got %v", got.AgreementScore)
	}
	if !reflect.DeepEqual(got.ContributingRoles, []Role{RoleExploit, RoleVulnerability}) {
		t.Errorf("Unexpected contributing roles: %v", got.ContributingRoles)
	}
	if got.Finding.Rationale != "drain via fallback" {
		t.Errorf("Expected highest-confidence representative, got %q", got.Finding.Rationale)
	}
}

func TestReduceAgreementBoundary(t *testing.T) {
	shared := NewFinding("reentrancy", SeverityHigh, Location{Function: "withdraw", StartLine: 10, EndLine: 20}, "", 0.7)
	overlapping := NewFinding("reentrancy", SeverityHigh, Location{Function: "withdraw(uint256)", StartLine: 15, EndLine: 18}, "", 0.6)

	both := []AgentResult{
		ok(RoleVulnerability, shared),
		ok(RoleExploit, overlapping),
		failed(RoleFix, StatusTimedOut),
	}
	report := NewConsensusEngine(nil).Reduce(both, 0)
	if len(report.Accepted) != 1 || report.Accepted[0].AgreementScore != 1.0 {
		t.Fatalf("Expected single group with agreement 1.0, got %+v", report.Accepted)
	}
	if len(report.AgentsInvoked) != 3 || len(report.AgentsSucceeded) != 2 {
		t.Errorf("Expected 3 invoked / 2 succeeded, got %v / %v", report.AgentsInvoked, report.AgentsSucceeded)
	}

	one := []AgentResult{
		ok(RoleVulnerability, shared),
		ok(RoleExploit),
		failed(RoleFix, StatusFailed),
	}
	report = NewConsensusEngine(nil).Reduce(one, 0)
	if len(report.Accepted) != 1 || report.Accepted[0].AgreementScore != 0.5 {
		t.Fatalf("Expected agreement 0.5, got %+v", report.Accepted)
	}
}

func TestReduceSeverityResolution(t *testing.T) {
	results := []AgentResult{
		ok(RoleVulnerability, NewFinding("access_control", SeverityMedium, fn("setOwner"), "", 0.5)),
		ok(RoleGovernance, NewFinding("access-control", SeverityCritical, fn("setOwner"), "", 0.5)),
		ok(RoleFix, NewFinding("Access Control", SeverityLow, fn("setOwner"), "", 0.5)),
	}
	report := NewConsensusEngine(nil).Reduce(results, 0)
	if len(report.Accepted) != 1 {
		t.Fatalf("Expected one group, got %d", len(report.Accepted))
	}
	if report.Accepted[0].ResolvedSeverity != SeverityCritical {
		t.Errorf("Expected Critical, got %s", report.Accepted[0].ResolvedSeverity)
	}
}

func TestReduceThresholdProperty(t *testing.T) {
	results := []AgentResult{
		ok(RoleVulnerability,
			NewFinding("reentrancy", SeverityHigh, fn("withdraw"), "", 0.9),
			NewFinding("tx_origin", SeverityMedium, fn("auth"), "", 0.4)),
		ok(RoleExploit,
			NewFinding("reentrancy", SeverityCritical, fn("withdraw"), "", 0.7),
			NewFinding("flash loan", SeverityHigh, Location{}, "", 0.8)),
		ok(RoleEconomic,
			NewFinding("flashloan", SeverityHigh, fn("swap"), "", 0.6)),
		failed(RoleGovernance, StatusFailed),
	}
	for _, threshold := range []float64{0, 0.1, 1.0 / 3, 0.5, 2.0 / 3, 0.9, 1} {
		report := NewConsensusEngine(nil).Reduce(results, threshold)
		if report.ThresholdUsed != threshold {
			t.Errorf("ThresholdUsed = %v, want %v", report.ThresholdUsed, threshold)
		}
		for _, a := range report.Accepted {
			if a.AgreementScore < threshold {
				t.Errorf("threshold %v: accepted %s with score %v", threshold, a.Finding.Kind, a.AgreementScore)
			}
			if a.AgreementScore < 0 || a.AgreementScore > 1 {
				t.Errorf("score out of range: %v", a.AgreementScore)
			}
		}
	}
}

func TestReduceDeterministicAndOrderIndependent(t *testing.T) {
	results := []AgentResult{
		ok(RoleVulnerability,
			NewFinding("reentrancy", SeverityHigh, fn("withdraw"), "a", 0.9),
			NewFinding("dos", SeverityLow, Location{StartLine: 40, EndLine: 44}, "b", 0.3)),
		ok(RoleExploit,
			NewFinding("reentrancy", SeverityCritical, Location{}, "c", 0.9),
			NewFinding("dos", SeverityMedium, Location{StartLine: 42}, "d", 0.5)),
		ok(RoleGovernance, NewFinding("centralization", SeverityMedium, fn("pause"), "e", 0.5)),
		failed(RoleFix, StatusTimedOut),
	}
	reversed := make([]AgentResult, len(results))
	for i := range results {
		reversed[len(results)-1-i] = results[i]
	}

	eng := NewConsensusEngine(nil)
	first := eng.Reduce(results, 0.3)
	second := eng.Reduce(results, 0.3)
	third := eng.Reduce(reversed, 0.3)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Reduce is not deterministic:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(first, third) {
		t.Errorf("Reduce depends on result order:\n%+v\n%+v", first, third)
	}

	// sorted by severity desc then agreement desc
	for i := 1; i < len(first.Accepted); i++ {
		prev, cur := first.Accepted[i-1], first.Accepted[i]
		if prev.ResolvedSeverity < cur.ResolvedSeverity {
			t.Errorf("entries not sorted by severity: %v before %v", prev.ResolvedSeverity, cur.ResolvedSeverity)
		}
		if prev.ResolvedSeverity == cur.ResolvedSeverity && prev.AgreementScore < cur.AgreementScore {
			t.Errorf("entries not sorted by agreement within severity")
		}
	}
}

func TestReduceUnlocalizedFindingCorroboratesLocalizedGroups(t *testing.T) {
	results := []AgentResult{
		ok(RoleVulnerability,
			NewFinding("reentrancy", SeverityHigh, fn("withdraw"), "", 0.5),
			NewFinding("reentrancy", SeverityHigh, fn("claim"), "", 0.5)),
		ok(RoleExploit, NewFinding("reentrancy", SeverityCritical, Location{}, "", 0.5)),
	}
	report := NewConsensusEngine(nil).Reduce(results, 1)
	if len(report.Accepted) != 2 {
		t.Fatalf("Expected both localized groups accepted, got %d", len(report.Accepted))
	}
	for _, a := range report.Accepted {
		if a.ResolvedSeverity != SeverityCritical {
			t.Errorf("Expected unlocalized Critical to raise %s, got %s", a.Finding.Location, a.ResolvedSeverity)
		}
	}
}

func TestReduceDistinctLocationsStaySeparate(t *testing.T) {
	results := []AgentResult{
		ok(RoleVulnerability, NewFinding("reentrancy", SeverityHigh, fn("withdraw"), "", 0.5)),
		ok(RoleExploit, NewFinding("reentrancy", SeverityHigh, fn("deposit"), "", 0.5)),
	}
	report := NewConsensusEngine(nil).Reduce(results, 0.5)
	if len(report.Accepted) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(report.Accepted))
	}
	for _, a := range report.Accepted {
		if a.AgreementScore != 0.5 {
			t.Errorf("Expected 0.5 agreement, got %v", a.AgreementScore)
		}
	}

	merged := NewConsensusEngine(KindMatcher{}).Reduce(results, 0.5)
	if len(merged.Accepted) != 1 || merged.Accepted[0].AgreementScore != 1 {
		t.Errorf("KindMatcher should merge by kind alone, got %+v", merged.Accepted)
	}
}

func TestReduceFailedResultsContributeNothing(t *testing.T) {
	bad := failed(RoleExploit, StatusFailed)
	bad.Findings = []Finding{NewFinding("reentrancy", SeverityCritical, Location{}, "", 1)}

	report := NewConsensusEngine(nil).Reduce([]AgentResult{ok(RoleVulnerability), bad}, 0)
	if len(report.Accepted) != 0 {
		t.Errorf("Failed result findings must be ignored, got %+v", report.Accepted)
	}
	if !reflect.DeepEqual(report.AgentsSucceeded, []Role{RoleVulnerability}) {
		t.Errorf("Unexpected succeeded set %v", report.AgentsSucceeded)
	}
}

func TestReduceEmptyAndAllFailed(t *testing.T) {
	empty := NewConsensusEngine(nil).Reduce(nil, 0.7)
	if len(empty.AgentsInvoked) != 0 || len(empty.Accepted) != 0 || empty.AllFailed() {
		t.Errorf("Unexpected empty report %+v", empty)
	}

	none := NewConsensusEngine(nil).Reduce([]AgentResult{
		failed(RoleVulnerability, StatusTimedOut),
		failed(RoleExploit, StatusFailed),
	}, 0.7)
	if !none.AllFailed() {
		t.Errorf("Expected AllFailed report")
	}
	if len(none.Accepted) != 0 || len(none.AgentsSucceeded) != 0 || len(none.AgentsInvoked) != 2 {
		t.Errorf("Unexpected all-failed report %+v", none)
	}
}

func TestReduceGroupsProseLocationsOfTheSameFunction(t *testing.T) {
	results := []AgentResult{
		ok(RoleVulnerability, NewFinding("reentrancy", SeverityHigh, ParseLocation("withdraw()", 0, 0), "", 0.8)),
		ok(RoleExploit, NewFinding("reentrancy", SeverityCritical, ParseLocation("withdraw function at line 42", 0, 0), "", 0.9)),
	}
	report := NewConsensusEngine(nil).Reduce(results, 0.7)
	if len(report.Accepted) != 1 {
		t.Fatalf("Expected one accepted group, got %+v", report.Accepted)
	}
	if got := report.Accepted[0]; got.AgreementScore != 1 || len(got.ContributingRoles) != 2 {
		t.Errorf("Expected agreement 1.0 from both roles, got %v %v", got.AgreementScore, got.ContributingRoles)
	}
}
