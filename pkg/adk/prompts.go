package adk

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"text/template"

	"github.com/avaloki108/Slitheryn/pkg/engine"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// ContextModeKey is the context entry the orchestrator uses to pass the
// analysis mode to an agent. It selects the mode instruction and is not
// repeated in the context listing.
const ContextModeKey = "analysis_mode"

type contextEntry struct {
	Key   string
	Value string
}

type promptData struct {
	Role    engine.Role
	Subject string
	Mode    string
	Code    string
	Context []contextEntry
}

func loadPrompt(role engine.Role) (*template.Template, error) {
	return template.New(string(role)).ParseFS(promptFS, "prompts/base.tmpl", "prompts/"+string(role)+".tmpl")
}

// renderPrompt fills the role template. Context keys are emitted sorted so the
// prompt is stable for identical input.
func renderPrompt(tmpl *template.Template, role engine.Role, code string, vars map[string]string) (string, error) {
	data := promptData{Role: role, Code: code, Mode: "comprehensive"}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch k {
		case ContextModeKey:
			if vars[k] != "" {
				data.Mode = vars[k]
			}
		case "subject_id":
			data.Subject = vars[k]
		default:
			data.Context = append(data.Context, contextEntry{Key: k, Value: vars[k]})
		}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "prompt", data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", role, err)
	}
	return buf.String(), nil
}
