package selector

import (
	"reflect"
	"testing"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

func TestDefaultTableResolve(t *testing.T) {
	s := New(DefaultTable())
	tests := []struct {
		role engine.Role
		mode Mode
		want string
	}{
		{engine.RoleVulnerability, ModeSpecialized, ModelPrimary},
		{engine.RoleExploit, ModeSpecialized, ModelReasoning},
		{engine.RoleEconomic, ModeSpecialized, ModelComprehensive},
		{engine.RoleGovernance, ModeQuick, ModelReasoning},
		{engine.RoleFix, ModeComprehensive, ModelPrimary},
	}
	for _, tt := range tests {
		if got := s.Resolve(tt.role, tt.mode); got != tt.want {
			t.Errorf("Resolve(%s, %s) = %q, want %q", tt.role, tt.mode, got, tt.want)
		}
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	s := New(Table{Default: "fallback"})
	if got := s.Resolve(engine.RoleExploit, ModeQuick); got != "fallback" {
		t.Errorf("Resolve = %q, want fallback", got)
	}
	if got := New(Table{}).Resolve(engine.RoleFix, ModeQuick); got != ModelPrimary {
		t.Errorf("empty table should fall back to %q, got %q", ModelPrimary, got)
	}
}

func TestMarkUnavailableIsImmutable(t *testing.T) {
	base := New(DefaultTable())
	degraded := base.MarkUnavailable(ModelReasoning)

	if got := base.Resolve(engine.RoleExploit, ModeSpecialized); got != ModelReasoning {
		t.Errorf("original selector changed: %q", got)
	}
	if got := degraded.Resolve(engine.RoleExploit, ModeSpecialized); got != ModelComprehensive {
		t.Errorf("expected next preference, got %q", got)
	}

	none := degraded.MarkUnavailable(ModelPrimary, ModelComprehensive)
	if got := none.Resolve(engine.RoleExploit, ModeSpecialized); got != ModelPrimary {
		t.Errorf("expected default when every preference is unavailable, got %q", got)
	}
}

func TestNewCopiesTable(t *testing.T) {
	table := Table{Default: "d", Preferences: map[engine.Role]map[Mode][]string{
		engine.RoleFix: {ModeQuick: {"a", "b"}},
	}}
	s := New(table)
	table.Preferences[engine.RoleFix][ModeQuick][0] = "mutated"
	table.Preferences[engine.RoleFix][ModeComprehensive] = []string{"x"}

	if got := s.Resolve(engine.RoleFix, ModeQuick); got != "a" {
		t.Errorf("selector observed caller mutation: %q", got)
	}
	if got := s.Resolve(engine.RoleFix, ModeComprehensive); got != "d" {
		t.Errorf("selector observed caller mutation: %q", got)
	}
	if !reflect.DeepEqual(s.Models(), []string{"a", "b", "d"}) {
		t.Errorf("Models = %v", s.Models())
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range Modes() {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	for _, m := range []Mode{"", "bogus", "Quick"} {
		if m.Valid() {
			t.Errorf("%q should not be valid", m)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"Quick": ModeQuick, "": ModeComprehensive, "reasoning": ModeSpecialized} {
		if got, err := ParseMode(in); err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("deep"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
