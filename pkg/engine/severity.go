package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is ordered: a larger value is more severe.
type Severity int

const (
	SeverityInformational Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"Informational", "Low", "Medium", "High", "Critical"}

func (s Severity) String() string {
	if s < SeverityInformational || s > SeverityCritical {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity matches names case-insensitively and accepts the common
// shorthands models emit ("crit", "info", "med"). Unknown input yields
// Informational with ok=false.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "crit", "severe":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "medium", "med", "moderate":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	case "informational", "info", "information", "note", "none":
		return SeverityInformational, true
	}
	return SeverityInformational, false
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := ParseSeverity(name)
	if !ok {
		return fmt.Errorf("unknown severity %q", name)
	}
	*s = v
	return nil
}
