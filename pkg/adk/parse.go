package adk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

const defaultConfidence = 0.5

// cleanJSONResponse strips markdown fences and any prose around the JSON value.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return content
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end > start {
		return content[start : end+1]
	}
	return content
}

// parseFindings decodes either a bare array of findings or an object carrying
// the array under one of keys. Anything else is a malformed response.
func parseFindings(raw string, keys ...string) ([]engine.Finding, error) {
	body := []byte(cleanJSONResponse(raw))
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var list []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		found := false
		for _, k := range keys {
			v, ok := obj[k]
			if !ok {
				continue
			}
			if string(bytes.TrimSpace(v)) == "null" {
				found = true
				break
			}
			if err := json.Unmarshal(v, &list); err != nil {
				return nil, fmt.Errorf("%w: %q is not a list: %v", ErrMalformedResponse, k, err)
			}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: no findings list (want one of %s)", ErrMalformedResponse, strings.Join(keys, ", "))
		}
	}

	findings := make([]engine.Finding, 0, len(list))
	for i, item := range list {
		var w wireFinding
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, fmt.Errorf("%w: finding %d: %v", ErrMalformedResponse, i, err)
		}
		if f, ok := w.finding(); ok {
			findings = append(findings, f)
		}
	}
	return findings, nil
}

// wireFinding is the loose shape models actually produce.
type wireFinding struct {
	Kind              string          `json:"kind"`
	Type              string          `json:"type"`
	VulnerabilityType string          `json:"vulnerability_type"`
	Category          string          `json:"category"`
	Severity          string          `json:"severity"`
	Location          json.RawMessage `json:"location"`
	Function          string          `json:"function"`
	LineStart         flexInt         `json:"line_start"`
	LineEnd           flexInt         `json:"line_end"`
	Rationale         string          `json:"rationale"`
	Description       string          `json:"description"`
	Confidence        *flexFloat      `json:"confidence"`
}

func (w wireFinding) finding() (engine.Finding, bool) {
	kind := firstNonEmpty(w.Kind, w.Type, w.VulnerabilityType, w.Category)
	if strings.TrimSpace(kind) == "" {
		return engine.Finding{}, false
	}
	sev, _ := engine.ParseSeverity(w.Severity)

	loc := engine.ParseLocation(w.Function, int(w.LineStart), int(w.LineEnd))
	if len(w.Location) > 0 {
		var s string
		if err := json.Unmarshal(w.Location, &s); err == nil {
			loc = engine.ParseLocation(s, int(w.LineStart), int(w.LineEnd))
			if fn := engine.ParseLocation(w.Function, 0, 0).Function; fn != "" {
				loc.Function = fn
			}
		} else {
			var obj struct {
				Function  string  `json:"function"`
				StartLine flexInt `json:"start_line"`
				EndLine   flexInt `json:"end_line"`
			}
			if err := json.Unmarshal(w.Location, &obj); err == nil {
				loc = engine.ParseLocation(obj.Function, int(obj.StartLine), int(obj.EndLine))
			}
		}
	}

	conf := defaultConfidence
	if w.Confidence != nil {
		conf = float64(*w.Confidence)
		// percentages
		if conf > 1 && conf <= 100 {
			conf /= 100
		}
	}
	return engine.NewFinding(kind, sev, loc, firstNonEmpty(w.Rationale, w.Description), conf), true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// flexInt accepts 12, "12" or null.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexInt(v)
	return nil
}

// flexFloat accepts 0.8, "0.8", "80%" or a word like "high".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(string(b)), `"`))
	s = strings.TrimSuffix(s, "%")
	switch s {
	case "", "null":
		*f = defaultConfidence
		return nil
	case "high":
		*f = 0.9
		return nil
	case "medium":
		*f = 0.6
		return nil
	case "low":
		*f = 0.3
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = defaultConfidence
		return nil
	}
	*f = flexFloat(v)
	return nil
}
