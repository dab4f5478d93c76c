package engine

import (
	"fmt"
	"strings"
)

// Summary returns a plain-text rendering of the report.
func (r *ConsensusReport) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Consensus Report for %s (%d accepted findings):\n", r.SubjectID, len(r.Accepted)))
	sb.WriteString("--------------------------------------------------\n")
	sb.WriteString(fmt.Sprintf("Agents invoked:   %s\n", joinRoles(r.AgentsInvoked)))
	sb.WriteString(fmt.Sprintf("Agents succeeded: %s\n", joinRoles(r.AgentsSucceeded)))
	sb.WriteString(fmt.Sprintf("Threshold:        %.2f\n", r.ThresholdUsed))
	if len(r.ModelsUsed) > 0 {
		sb.WriteString(fmt.Sprintf("Models:           %s\n", strings.Join(r.ModelsUsed, ", ")))
	}
	sb.WriteString("\n")

	if r.AllFailed() {
		sb.WriteString("No agent succeeded; the report carries no signal.\n")
		return sb.String()
	}
	if len(r.Accepted) == 0 {
		sb.WriteString("No finding reached consensus.\n")
		return sb.String()
	}

	for _, a := range r.Accepted {
		sb.WriteString(fmt.Sprintf("[%s] %s (agreement %.2f: %s)\n",
			a.ResolvedSeverity, a.Finding.Kind, a.AgreementScore, joinRoles(a.ContributingRoles)))
		if !a.Finding.Location.IsZero() {
			sb.WriteString(fmt.Sprintf("  Location: %s\n", a.Finding.Location))
		}
		if a.Finding.Rationale != "" {
			sb.WriteString(fmt.Sprintf("  Rationale: %s\n", a.Finding.Rationale))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func joinRoles(roles []Role) string {
	if len(roles) == 0 {
		return "-"
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
