package engine

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in         string
		start, end int
		want       Location
	}{
		{"withdraw()", 0, 0, Location{Function: "withdraw()"}},
		{"function withdraw", 0, 0, Location{Function: "withdraw"}},
		{"line 42", 0, 0, Location{StartLine: 42, EndLine: 42}},
		{"lines 10-20", 0, 0, Location{StartLine: 10, EndLine: 20}},
		{"withdraw() L12-L18", 0, 0, Location{Function: "withdraw()", StartLine: 12, EndLine: 18}},
		{"transfer", 7, 0, Location{Function: "transfer", StartLine: 7, EndLine: 7}},
		{"", 0, 0, Location{}},
		{"withdraw function at line 42", 0, 0, Location{Function: "withdraw", StartLine: 42, EndLine: 42}},
		{"in withdraw", 0, 0, Location{Function: "withdraw"}},
		{"the withdraw() function of Vault", 0, 0, Location{Function: "withdraw()"}},
		{"Vault.sol: withdraw(uint256 amount), lines 10-14", 0, 0, Location{Function: "withdraw(uint256 amount)", StartLine: 10, EndLine: 14}},
		{"at line 7.", 0, 0, Location{StartLine: 7, EndLine: 7}},
	}
	for _, tt := range tests {
		got := ParseLocation(tt.in, tt.start, tt.end)
		if got != tt.want {
			t.Errorf("ParseLocation(%q, %d, %d) = %+v, want %+v", tt.in, tt.start, tt.end, got, tt.want)
		}
	}
}

func TestLocationOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Location
		want bool
	}{
		{"same function different spelling", Location{Function: "withdraw()"}, Location{Function: "Vault.Withdraw(uint256)"}, true},
		{"different functions", Location{Function: "withdraw"}, Location{Function: "deposit"}, false},
		{"intersecting lines", Location{StartLine: 10, EndLine: 20}, Location{StartLine: 20, EndLine: 30}, true},
		{"disjoint lines", Location{StartLine: 10, EndLine: 19}, Location{StartLine: 20, EndLine: 30}, false},
		{"function versus lines", Location{Function: "withdraw"}, Location{StartLine: 3, EndLine: 3}, false},
		{"prose around the same function", ParseLocation("withdraw function at line 42", 0, 0), ParseLocation("withdraw()", 0, 0), true},
		{"preposition before the function", ParseLocation("in withdraw", 0, 0), ParseLocation("Vault.withdraw(uint256)", 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps is not symmetric")
			}
		})
	}
}

func TestNormalizeKind(t *testing.T) {
	tests := map[string]string{
		"Reentrancy":          "reentrancy",
		"re-entrancy":         "reentrancy",
		"Flash Loan":          "flash_loan_attack",
		"tx.origin":           "tx_origin",
		"Oracle Manipulation": "price_manipulation",
		"Weird  Custom-Issue": "weird_custom_issue",
	}
	for in, want := range tests {
		if got := NormalizeKind(in); got != want {
			t.Errorf("NormalizeKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewFindingClampsConfidence(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.4: 0.4, 3: 1, math.NaN(): 0} {
		if got := NewFinding("dos", SeverityLow, Location{}, "", in).Confidence; got != want {
			t.Errorf("confidence %v clamped to %v, want %v", in, got, want)
		}
	}
}

func TestSeverityJSON(t *testing.T) {
	data, err := json.Marshal(SeverityCritical)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"Critical"` {
		t.Errorf("unexpected encoding %s", data)
	}

	var s Severity
	if err := json.Unmarshal([]byte(`"high"`), &s); err != nil || s != SeverityHigh {
		t.Errorf("decode high: %v %v", s, err)
	}
	if err := json.Unmarshal([]byte(`"catastrophic"`), &s); err == nil {
		t.Error("expected error for unknown severity")
	}
	if _, ok := ParseSeverity("catastrophic"); ok {
		t.Error("expected ok=false for unknown severity")
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(" Exploit "); err != nil || r != RoleExploit {
		t.Errorf("ParseRole(Exploit) = %v, %v", r, err)
	}
	if _, err := ParseRole("oracle"); err == nil {
		t.Error("expected unknown role error")
	}
}
