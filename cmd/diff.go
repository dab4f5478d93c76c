package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

var (
	diffFailOn string
	diffJSON   bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <baseline.json> <report.json>",
	Short: "Compare a report against a saved baseline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseline, err := engine.LoadReport(args[0])
		if err != nil {
			return fmt.Errorf("error loading baseline: %w", err)
		}
		current, err := engine.LoadReport(args[1])
		if err != nil {
			return fmt.Errorf("error loading report: %w", err)
		}
		diff := engine.Compare(baseline, current)

		out := cmd.OutOrStdout()
		if diffJSON {
			data, err := json.MarshalIndent(diff, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			fmt.Fprint(out, renderDiff(args[0], diff))
		}

		if diffFailOn != "" {
			min, ok := engine.ParseSeverity(diffFailOn)
			if !ok {
				return fmt.Errorf("unknown severity %q", diffFailOn)
			}
			if diff.Regressed(min) {
				return fmt.Errorf("new findings at or above %s", min)
			}
		}
		return nil
	},
}

func renderDiff(baselinePath string, d engine.ReportDiff) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Comparison against "+baselinePath) + "\n\n")
	section := func(label, marker string, list []engine.AcceptedFinding, limit int) {
		sb.WriteString(fmt.Sprintf("%s: %d\n", label, len(list)))
		for i, a := range list {
			if limit > 0 && i == limit {
				sb.WriteString(mutedStyle.Render(fmt.Sprintf("  ... and %d more", len(list)-limit)) + "\n")
				break
			}
			line := fmt.Sprintf("  [%s] %s %s", marker, severityBadge(a.ResolvedSeverity), a.Finding.Kind)
			if !a.Finding.Location.IsZero() {
				line += " at " + a.Finding.Location.String()
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}
	section("New", "+", d.New, 0)
	section("Fixed", "-", d.Fixed, 0)
	section("Unchanged", "=", d.Unchanged, 10)
	return sb.String()
}

func init() {
	diffCmd.Flags().StringVar(&diffFailOn, "fail-on", "", "Exit non-zero when a new finding reaches this severity (e.g. High)")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Print the comparison as JSON")
	rootCmd.AddCommand(diffCmd)
}
