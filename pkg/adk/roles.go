package adk

import (
	"fmt"
	"text/template"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

// RoleStrategy is the per-role part of an agent: its prompt and the keys under
// which its response may carry findings.
type RoleStrategy struct {
	Role  engine.Role
	Title string

	prompt *template.Template
	keys   []string
}

// Parse decodes a raw model response into findings.
func (s RoleStrategy) Parse(raw string) ([]engine.Finding, error) {
	return parseFindings(raw, s.keys...)
}

// Render builds the prompt for code and its context.
func (s RoleStrategy) Render(code string, vars map[string]string) (string, error) {
	return renderPrompt(s.prompt, s.Role, code, vars)
}

var strategies = map[engine.Role]RoleStrategy{}

func init() {
	register(engine.RoleVulnerability, "Vulnerability Detection", "vulnerabilities")
	register(engine.RoleExploit, "Exploit Analysis", "exploits", "attack_scenarios")
	register(engine.RoleFix, "Fix Recommendation", "fixes", "recommendations")
	register(engine.RoleEconomic, "Economic Attack Analysis", "economic_vulnerabilities", "economic_risks")
	register(engine.RoleGovernance, "Governance Risk Analysis", "governance_risks")
}

func register(role engine.Role, title string, keys ...string) {
	tmpl, err := loadPrompt(role)
	if err != nil {
		panic(fmt.Sprintf("adk: prompt for %s: %v", role, err))
	}
	strategies[role] = RoleStrategy{
		Role:   role,
		Title:  title,
		prompt: tmpl,
		keys:   append([]string{"findings"}, keys...),
	}
}

// Strategy returns the strategy for role.
func Strategy(role engine.Role) (RoleStrategy, error) {
	s, ok := strategies[role]
	if !ok {
		return RoleStrategy{}, fmt.Errorf("%w: %q", engine.ErrUnknownRole, role)
	}
	return s, nil
}

// Roles lists every role that has a strategy, in canonical order.
func Roles() []engine.Role {
	var out []engine.Role
	for _, r := range engine.AllRoles() {
		if _, ok := strategies[r]; ok {
			out = append(out, r)
		}
	}
	return out
}
