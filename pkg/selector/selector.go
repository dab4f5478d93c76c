// Package selector maps (role, mode) pairs to inference model identifiers.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

// Mode is the analysis depth requested by the caller.
type Mode string

const (
	ModeQuick         Mode = "quick"
	ModeComprehensive Mode = "comprehensive"
	ModeSpecialized   Mode = "specialized"
)

// Modes lists every mode in display order.
func Modes() []Mode { return []Mode{ModeQuick, ModeComprehensive, ModeSpecialized} }

// Valid reports whether m is one of Modes.
func (m Mode) Valid() bool {
	for _, known := range Modes() {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMode accepts a mode name case-insensitively. "reasoning" is kept as an
// alias of specialized.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quick", "fast":
		return ModeQuick, nil
	case "comprehensive", "full", "":
		return ModeComprehensive, nil
	case "specialized", "specialised", "reasoning":
		return ModeSpecialized, nil
	}
	return "", fmt.Errorf("unknown analysis mode %q (want quick, comprehensive or specialized)", s)
}

const (
	ModelPrimary       = "SmartLLM-OG:latest"
	ModelReasoning     = "phi4-reasoning:latest"
	ModelComprehensive = "qwen3:30b-a3b"
)

// Table is the model preference table: for each role and mode an ordered
// list of models, plus a role-agnostic default.
type Table struct {
	Default     string
	Preferences map[engine.Role]map[Mode][]string
}

// DefaultTable returns the built-in preferences. Each role leads with its
// specialist models; quick favours the reasoning model and comprehensive the
// primary model.
func DefaultTable() Table {
	prefs := map[engine.Role][]string{
		engine.RoleVulnerability: {ModelPrimary, ModelReasoning},
		engine.RoleExploit:       {ModelReasoning, ModelComprehensive},
		engine.RoleFix:           {ModelPrimary, ModelComprehensive},
		engine.RoleEconomic:      {ModelComprehensive, ModelReasoning},
		engine.RoleGovernance:    {ModelReasoning, ModelPrimary},
	}
	modeOrder := map[Mode][]string{
		ModeQuick:         {ModelReasoning, ModelPrimary, ModelComprehensive},
		ModeComprehensive: {ModelPrimary, ModelComprehensive, ModelReasoning},
	}

	t := Table{Default: ModelPrimary, Preferences: map[engine.Role]map[Mode][]string{}}
	for role, specialists := range prefs {
		t.Preferences[role] = map[Mode][]string{
			ModeSpecialized:   dedupe(specialists, modeOrder[ModeComprehensive]),
			ModeQuick:         dedupe(modeOrder[ModeQuick]),
			ModeComprehensive: dedupe(modeOrder[ModeComprehensive]),
		}
	}
	return t
}

// dedupe concatenates lists keeping the first occurrence of each model.
func dedupe(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, m := range l {
			m = strings.TrimSpace(m)
			if m != "" && !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Selector resolves models from an immutable copy of a Table.
type Selector struct {
	table       Table
	unavailable map[string]bool
}

// New copies t so later changes to the caller's table have no effect. An
// empty default falls back to ModelPrimary.
func New(t Table) *Selector {
	c := Table{Default: strings.TrimSpace(t.Default), Preferences: make(map[engine.Role]map[Mode][]string, len(t.Preferences))}
	if c.Default == "" {
		c.Default = ModelPrimary
	}
	for role, modes := range t.Preferences {
		m := make(map[Mode][]string, len(modes))
		for mode, models := range modes {
			m[mode] = dedupe(models)
		}
		c.Preferences[role] = m
	}
	return &Selector{table: c, unavailable: map[string]bool{}}
}

// Resolve returns the first preferred model for (role, mode) that is not
// marked unavailable, or the default. It never fails.
func (s *Selector) Resolve(role engine.Role, mode Mode) string {
	for _, m := range s.table.Preferences[role][mode] {
		if !s.unavailable[m] {
			return m
		}
	}
	return s.table.Default
}

// MarkUnavailable returns a new Selector that skips the given models.
func (s *Selector) MarkUnavailable(models ...string) *Selector {
	n := &Selector{table: s.table, unavailable: make(map[string]bool, len(s.unavailable)+len(models))}
	for m := range s.unavailable {
		n.unavailable[m] = true
	}
	for _, m := range models {
		n.unavailable[m] = true
	}
	return n
}

// Default is the fallback model.
func (s *Selector) Default() string { return s.table.Default }

// Models lists every configured model, default included, sorted.
func (s *Selector) Models() []string {
	all := []string{s.table.Default}
	for _, modes := range s.table.Preferences {
		for _, models := range modes {
			all = append(all, models...)
		}
	}
	out := dedupe(all)
	sort.Strings(out)
	return out
}

// Preferences returns a copy of the ordered models for (role, mode).
func (s *Selector) Preferences(role engine.Role, mode Mode) []string {
	return append([]string(nil), s.table.Preferences[role][mode]...)
}
