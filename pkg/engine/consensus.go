package engine

import (
	"sort"
	"strings"
	"time"
)

// Matcher decides whether two findings of the same kind denote the same issue.
// Kind equality is enforced by the engine before the matcher is consulted.
type Matcher interface {
	Equivalent(a, b Finding) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(a, b Finding) bool

func (f MatcherFunc) Equivalent(a, b Finding) bool { return f(a, b) }

// LocationMatcher is the default rule: an unlocalized finding matches any
// finding of its kind, two localized findings match when their locations
// overlap.
type LocationMatcher struct{}

func (LocationMatcher) Equivalent(a, b Finding) bool {
	if a.Location.IsZero() || b.Location.IsZero() {
		return true
	}
	return a.Location.Overlaps(b.Location)
}

// KindMatcher groups purely by kind.
type KindMatcher struct{}

func (KindMatcher) Equivalent(a, b Finding) bool { return true }

// AcceptedFinding is one consensus entry in a report
type AcceptedFinding struct {
	Finding           Finding  `json:"finding"`
	AgreementScore    float64  `json:"agreement_score"`
	ContributingRoles []Role   `json:"contributing_roles"`
	ResolvedSeverity  Severity `json:"resolved_severity"`
}

// ConsensusReport is the terminal artifact of an analysis run.
type ConsensusReport struct {
	SubjectID       string            `json:"subject_id"`
	RunID           string            `json:"run_id,omitempty"`
	Accepted        []AcceptedFinding `json:"accepted_findings"`
	AgentsInvoked   []Role            `json:"agents_invoked"`
	AgentsSucceeded []Role            `json:"agents_succeeded"`
	ThresholdUsed   float64           `json:"consensus_threshold_used"`
	ModelsUsed      []string          `json:"models_used,omitempty"`
	Results         []AgentResult     `json:"agent_results,omitempty"`
	Elapsed         time.Duration     `json:"elapsed,omitempty"`
}

// AllFailed reports the informational "no signal" condition: agents were
// invoked but none of them succeeded.
func (r *ConsensusReport) AllFailed() bool {
	return len(r.AgentsInvoked) > 0 && len(r.AgentsSucceeded) == 0
}

// ConsensusEngine reduces per-agent results into a ConsensusReport.
type ConsensusEngine struct {
	matcher Matcher
}

// NewConsensusEngine creates an engine. A nil matcher selects LocationMatcher.
func NewConsensusEngine(m Matcher) *ConsensusEngine {
	if m == nil {
		m = LocationMatcher{}
	}
	return &ConsensusEngine{matcher: m}
}

type taggedFinding struct {
	role Role
	f    Finding
}

type findingGroup struct {
	kind    string
	members []taggedFinding
}

// Reduce merges findings from the Ok results. It is a pure function of its
// inputs: the order of results does not affect the report.
func (e *ConsensusEngine) Reduce(results []AgentResult, threshold float64) ConsensusReport {
	report := ConsensusReport{
		ThresholdUsed:   threshold,
		Accepted:        []AcceptedFinding{},
		AgentsInvoked:   []Role{},
		AgentsSucceeded: []Role{},
	}

	var invoked, succeeded []Role
	var models []string
	var tagged []taggedFinding
	for _, r := range results {
		invoked = append(invoked, r.Role)
		if r.ModelUsed != "" {
			models = append(models, r.ModelUsed)
		}
		if !r.Ok() {
			continue
		}
		succeeded = append(succeeded, r.Role)
		for _, f := range r.Findings {
			tagged = append(tagged, taggedFinding{role: r.Role, f: f})
		}
	}
	report.AgentsInvoked = append(report.AgentsInvoked, sortRoles(invoked)...)
	report.AgentsSucceeded = append(report.AgentsSucceeded, sortRoles(succeeded)...)
	report.ModelsUsed = sortStrings(models)

	okCount := len(report.AgentsSucceeded)
	if okCount == 0 {
		return report
	}

	for _, g := range e.group(tagged) {
		roles := make([]Role, 0, len(g.members))
		for _, m := range g.members {
			roles = append(roles, m.role)
		}
		roles = sortRoles(roles)
		score := ClampUnit(float64(len(roles)) / float64(okCount))
		if score < threshold {
			continue
		}
		report.Accepted = append(report.Accepted, AcceptedFinding{
			Finding:           representative(g.members).f,
			AgreementScore:    score,
			ContributingRoles: roles,
			ResolvedSeverity:  maxSeverity(g.members),
		})
	}

	sort.SliceStable(report.Accepted, func(i, j int) bool {
		a, b := report.Accepted[i], report.Accepted[j]
		if a.ResolvedSeverity != b.ResolvedSeverity {
			return a.ResolvedSeverity > b.ResolvedSeverity
		}
		if a.AgreementScore != b.AgreementScore {
			return a.AgreementScore > b.AgreementScore
		}
		if a.Finding.Kind != b.Finding.Kind {
			return a.Finding.Kind < b.Finding.Kind
		}
		return a.Finding.Location.String() < b.Finding.Location.String()
	})
	return report
}

// group forms equivalence classes. Findings are put in a canonical order with
// localized findings first; each finding then joins every existing group whose
// members all match it, or opens a new group. An unlocalized finding therefore
// corroborates every localized group of its kind.
func (e *ConsensusEngine) group(tagged []taggedFinding) []*findingGroup {
	sorted := make([]taggedFinding, len(tagged))
	copy(sorted, tagged)
	sort.SliceStable(sorted, func(i, j int) bool { return canonicalLess(sorted[i], sorted[j]) })

	var groups []*findingGroup
	for _, t := range sorted {
		joined := false
		for _, g := range groups {
			if g.kind != t.f.Kind || !e.matchesAll(g, t.f) {
				continue
			}
			g.members = append(g.members, t)
			joined = true
			if !t.f.Location.IsZero() {
				break
			}
		}
		if !joined {
			groups = append(groups, &findingGroup{kind: t.f.Kind, members: []taggedFinding{t}})
		}
	}
	return groups
}

func (e *ConsensusEngine) matchesAll(g *findingGroup, f Finding) bool {
	for _, m := range g.members {
		if !e.matcher.Equivalent(m.f, f) {
			return false
		}
	}
	return true
}

func canonicalLess(a, b taggedFinding) bool {
	if a.f.Kind != b.f.Kind {
		return a.f.Kind < b.f.Kind
	}
	az, bz := a.f.Location.IsZero(), b.f.Location.IsZero()
	if az != bz {
		return !az
	}
	if al, bl := a.f.Location.String(), b.f.Location.String(); al != bl {
		return al < bl
	}
	if a.role != b.role {
		return a.role < b.role
	}
	if a.f.Severity != b.f.Severity {
		return a.f.Severity > b.f.Severity
	}
	if a.f.Confidence != b.f.Confidence {
		return a.f.Confidence > b.f.Confidence
	}
	return a.f.Rationale < b.f.Rationale
}

// representative picks the highest-confidence member, then the more severe one.
// Members are already in canonical order, so remaining ties resolve to the first.
func representative(members []taggedFinding) taggedFinding {
	best := members[0]
	for _, m := range members[1:] {
		if m.f.Confidence > best.f.Confidence ||
			(m.f.Confidence == best.f.Confidence && m.f.Severity > best.f.Severity) {
			best = m
		}
	}
	return best
}

func maxSeverity(members []taggedFinding) Severity {
	s := members[0].f.Severity
	for _, m := range members[1:] {
		if m.f.Severity > s {
			s = m.f.Severity
		}
	}
	return s
}

func sortStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
