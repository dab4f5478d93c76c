package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultBaselinePath is where a report is saved for later comparison.
const DefaultBaselinePath = ".slitheryn-baseline.json"

// ReportDiff classifies accepted findings of a current report against a
// baseline report.
type ReportDiff struct {
	New       []AcceptedFinding `json:"new"`
	Fixed     []AcceptedFinding `json:"fixed"`
	Unchanged []AcceptedFinding `json:"unchanged"`
}

// SaveReport writes the report as indented JSON.
func SaveReport(path string, r *ConsensusReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (*ConsensusReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r ConsensusReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("error parsing report %s: %w", path, err)
	}
	return &r, nil
}

// Compare matches accepted findings by kind and location. A finding of the
// current report with no counterpart in the baseline is new; a baseline
// finding with no counterpart is fixed.
func Compare(baseline, current *ConsensusReport) ReportDiff {
	diff := ReportDiff{New: []AcceptedFinding{}, Fixed: []AcceptedFinding{}, Unchanged: []AcceptedFinding{}}
	used := make([]bool, len(baseline.Accepted))

	for _, cur := range current.Accepted {
		matched := false
		for i, base := range baseline.Accepted {
			if used[i] || !sameIssue(base.Finding, cur.Finding) {
				continue
			}
			used[i] = true
			matched = true
			break
		}
		if matched {
			diff.Unchanged = append(diff.Unchanged, cur)
		} else {
			diff.New = append(diff.New, cur)
		}
	}
	for i, base := range baseline.Accepted {
		if !used[i] {
			diff.Fixed = append(diff.Fixed, base)
		}
	}

	for _, list := range [][]AcceptedFinding{diff.New, diff.Fixed, diff.Unchanged} {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].ResolvedSeverity > list[j].ResolvedSeverity
		})
	}
	return diff
}

// sameIssue is stricter than consensus grouping: an unlocalized finding only
// matches another unlocalized finding.
func sameIssue(a, b Finding) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Location.IsZero() || b.Location.IsZero() {
		return a.Location.IsZero() && b.Location.IsZero()
	}
	return a.Location.Overlaps(b.Location)
}

// Regressed reports whether the diff introduces a new finding at or above min.
func (d ReportDiff) Regressed(min Severity) bool {
	for _, a := range d.New {
		if a.ResolvedSeverity >= min {
			return true
		}
	}
	return false
}
