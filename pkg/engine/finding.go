package engine

import (
	"fmt"
	"math"
	"strings"
)

// Finding represents a normalized issue reported by a single agent
type Finding struct {
	Kind       string   `json:"kind"` // normalized category: reentrancy / access_control / ...
	Severity   Severity `json:"severity"`
	Location   Location `json:"location"`
	Rationale  string   `json:"rationale"`
	Confidence float64  `json:"confidence"` // self-reported, 0-1
}

// NewFinding normalizes the kind and clamps confidence into [0,1].
func NewFinding(kind string, severity Severity, loc Location, rationale string, confidence float64) Finding {
	return Finding{
		Kind:       NormalizeKind(kind),
		Severity:   severity,
		Location:   loc,
		Rationale:  strings.TrimSpace(rationale),
		Confidence: ClampUnit(confidence),
	}
}

// ClampUnit forces v into [0,1]. NaN becomes 0.
func ClampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Location points at the code a finding refers to. The zero value means the
// agent did not localize the finding.
type Location struct {
	Function  string `json:"function,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// ParseLocation builds a Location from the free-form location string an agent
// returns ("withdraw()", "function withdraw", "line 42", "in withdraw at
// L10-L20") plus optional explicit line numbers. Function is reduced to a
// single identifier, keeping a parameter list when one is given.
func ParseLocation(s string, start, end int) Location {
	loc := Location{StartLine: start, EndLine: end}
	fields := strings.Fields(strings.TrimSpace(s))
	var rest []string
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		lower := strings.ToLower(strings.Trim(f, ",;:"))
		if lower == "line" || lower == "lines" {
			if i+1 < len(fields) {
				a, b, ok := parseLineRange(fields[i+1])
				if ok && loc.StartLine == 0 {
					loc.StartLine, loc.EndLine = a, b
				}
				i++
			}
			continue
		}
		if a, b, ok := parseLineRange(f); ok {
			if loc.StartLine == 0 {
				loc.StartLine, loc.EndLine = a, b
			}
			continue
		}
		rest = append(rest, f)
	}
	loc.Function = functionName(rest)

	if loc.StartLine > 0 && loc.EndLine < loc.StartLine {
		loc.EndLine = loc.StartLine
	}
	if loc.StartLine <= 0 {
		loc.StartLine, loc.EndLine = 0, 0
	}
	return loc
}

var locationFiller = map[string]bool{
	"at": true, "in": true, "the": true, "of": true, "on": true, "near": true,
	"inside": true, "within": true, "function": true, "fn": true, "func": true,
	"method": true, "modifier": true, "contract": true, "and": true,
}

// functionName picks the identifier a location names: the one followed by a
// parameter list, else the last identifier that is not a filler word.
func functionName(tokens []string) string {
	text := strings.Join(tokens, " ")
	if open := strings.IndexByte(text, '('); open > 0 {
		begin := open
		for begin > 0 && isIdentByte(text[begin-1]) {
			begin--
		}
		if begin < open {
			end := len(text)
			if close := strings.IndexByte(text[open:], ')'); close >= 0 {
				end = open + close + 1
			}
			return text[begin:end]
		}
	}
	for i := len(tokens) - 1; i >= 0; i-- {
		t := strings.Trim(tokens[i], ",;:\"'`")
		lower := strings.ToLower(t)
		if t == "" || locationFiller[lower] || !isIdentifier(t) ||
			strings.HasSuffix(lower, ".sol") || strings.HasSuffix(lower, ".vy") {
			continue
		}
		return t
	}
	return ""
}

func isIdentifier(s string) bool {
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parseLineRange accepts "42", "L42", "10-20", "L10-L20", "10:20".
func parseLineRange(s string) (int, int, bool) {
	s = strings.Trim(s, ",;:.()")
	s = strings.ReplaceAll(strings.ToUpper(s), "L", "")
	sep := strings.IndexAny(s, "-:")
	if sep < 0 {
		n, ok := atoiPositive(s)
		return n, n, ok
	}
	a, okA := atoiPositive(s[:sep])
	b, okB := atoiPositive(s[sep+1:])
	if !okA || !okB {
		return 0, 0, false
	}
	if b < a {
		a, b = b, a
	}
	return a, b, true
}

func atoiPositive(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<24 {
			return 0, false
		}
	}
	return n, n > 0
}

// IsZero reports whether the location is absent.
func (l Location) IsZero() bool {
	return l.Function == "" && l.StartLine == 0
}

func (l Location) hasLines() bool {
	return l.StartLine > 0
}

// functionKey reduces "function Withdraw(uint256 amount)" to "withdraw".
func (l Location) functionKey() string {
	f := strings.ToLower(strings.TrimSpace(l.Function))
	f = strings.TrimPrefix(f, "function ")
	if i := strings.IndexByte(f, '('); i >= 0 {
		f = f[:i]
	}
	if i := strings.LastIndexByte(f, '.'); i >= 0 {
		f = f[i+1:]
	}
	return strings.TrimSpace(f)
}

// Overlaps reports whether two present locations denote the same code. When
// both name a function the names decide; otherwise line ranges must intersect.
// Locations with no comparable dimension do not overlap.
func (l Location) Overlaps(o Location) bool {
	if l.functionKey() != "" && o.functionKey() != "" {
		return l.functionKey() == o.functionKey()
	}
	if l.hasLines() && o.hasLines() {
		return l.StartLine <= o.EndLine && o.StartLine <= l.EndLine
	}
	return false
}

func (l Location) String() string {
	var parts []string
	if l.Function != "" {
		parts = append(parts, l.Function)
	}
	if l.hasLines() {
		if l.EndLine > l.StartLine {
			parts = append(parts, fmt.Sprintf("L%d-%d", l.StartLine, l.EndLine))
		} else {
			parts = append(parts, fmt.Sprintf("L%d", l.StartLine))
		}
	}
	return strings.Join(parts, " ")
}
