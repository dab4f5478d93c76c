package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/avaloki108/Slitheryn/pkg/engine"
	"github.com/avaloki108/Slitheryn/pkg/orchestrator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

var severityColors = map[engine.Severity]lipgloss.Color{
	engine.SeverityCritical:      lipgloss.Color("#FF3B3B"),
	engine.SeverityHigh:          lipgloss.Color("#FF8C42"),
	engine.SeverityMedium:        lipgloss.Color("#FFD23F"),
	engine.SeverityLow:           lipgloss.Color("#5B8DEF"),
	engine.SeverityInformational: lipgloss.Color("#AAAAAA"),
}

func severityBadge(s engine.Severity) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(severityColors[s]).
		Render(fmt.Sprintf("%-13s", strings.ToUpper(s.String())))
}

func statusText(s engine.Status) string {
	if s == engine.StatusOk {
		return okStyle.Render(string(s))
	}
	return failStyle.Render(string(s))
}

func renderReport(r *engine.ConsensusReport) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Consensus report: "+r.SubjectID) + "\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("run %s  threshold %.2f  elapsed %s", r.RunID, r.ThresholdUsed, r.Elapsed.Round(time.Millisecond))) + "\n\n")

	var agents []string
	for _, res := range r.Results {
		line := fmt.Sprintf("%-14s %-24s %-10s %3d findings  %s", res.Role, res.ModelUsed, statusText(res.Status), len(res.Findings), res.Elapsed.Round(time.Millisecond))
		if res.Reason != "" {
			line += "  " + mutedStyle.Render(truncateReason(res.Reason, 60))
		}
		agents = append(agents, line)
	}
	if len(agents) > 0 {
		sb.WriteString(boxStyle.Render(strings.Join(agents, "\n")) + "\n\n")
	}

	switch {
	case r.AllFailed():
		sb.WriteString(failStyle.Render("No agent succeeded; the report carries no signal.") + "\n")
		return sb.String()
	case len(r.Accepted) == 0:
		sb.WriteString("No finding reached consensus.\n")
		return sb.String()
	}

	for _, a := range r.Accepted {
		sb.WriteString(fmt.Sprintf("%s %s  %s\n",
			severityBadge(a.ResolvedSeverity),
			lipgloss.NewStyle().Bold(true).Render(a.Finding.Kind),
			mutedStyle.Render(fmt.Sprintf("agreement %.2f (%s)", a.AgreementScore, joinRoleNames(a.ContributingRoles)))))
		if !a.Finding.Location.IsZero() {
			sb.WriteString("    at " + a.Finding.Location.String() + "\n")
		}
		if a.Finding.Rationale != "" {
			sb.WriteString("    " + a.Finding.Rationale + "\n")
		}
	}
	return sb.String()
}

func renderStatus(st orchestrator.StatusReport) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Slitheryn status") + "\n\n")
	sb.WriteString(fmt.Sprintf("Provider:        %s\n", st.Provider))
	sb.WriteString(fmt.Sprintf("Roles:           %s\n", joinRoleNames(st.Roles)))
	sb.WriteString(fmt.Sprintf("Default model:   %s\n", st.DefaultModel))
	sb.WriteString(fmt.Sprintf("Max workers:     %d\n", st.MaxWorkers))
	sb.WriteString(fmt.Sprintf("Agent timeout:   %s\n", st.DefaultTimeout))
	sb.WriteString(fmt.Sprintf("Threshold:       %.2f\n\n", st.Threshold))

	if !st.Probed {
		sb.WriteString("Models:\n")
		for _, m := range st.Models {
			sb.WriteString("  " + m + "\n")
		}
		sb.WriteString(mutedStyle.Render("(run with --check-models to probe the service)") + "\n")
		return sb.String()
	}
	if !st.Reachable {
		sb.WriteString(failStyle.Render("Service unreachable: "+st.Error) + "\n")
		return sb.String()
	}
	sb.WriteString(okStyle.Render("Service reachable") + "\n")
	models := append([]string(nil), st.Models...)
	sort.Strings(models)
	for _, m := range models {
		mark := failStyle.Render("missing")
		if st.ModelsAvailable[m] {
			mark = okStyle.Render("available")
		}
		sb.WriteString(fmt.Sprintf("  %-28s %s\n", m, mark))
	}
	return sb.String()
}

func joinRoleNames(roles []engine.Role) string {
	if len(roles) == 0 {
		return "-"
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func truncateReason(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
