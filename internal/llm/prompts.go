package llm

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/base.prompt prompts/aspects/*.prompt
var promptFiles embed.FS

// PromptData is the material substituted into the base review template.
type PromptData struct {
	Aspect       string
	ScopeID      string
	Bundle       string
	SoT          string
	AspectPrompt string
}

// PromptSet holds the parsed base template plus one instruction template
// per aspect.
type PromptSet struct {
	base    *template.Template
	aspects map[string]string
}

// LoadPrompts parses the embedded prompt templates for the given aspects.
func LoadPrompts(aspects []string) (*PromptSet, error) {
	raw, err := promptFiles.ReadFile("prompts/base.prompt")
	if err != nil {
		return nil, fmt.Errorf("reading base prompt: %w", err)
	}
	base, err := template.New("base").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing base prompt: %w", err)
	}

	ps := &PromptSet{base: base, aspects: make(map[string]string, len(aspects))}
	for _, a := range aspects {
		content, err := promptFiles.ReadFile("prompts/aspects/" + a + ".prompt")
		if err != nil {
			return nil, fmt.Errorf("reading aspect prompt %q: %w", a, err)
		}
		ps.aspects[a] = string(content)
	}
	return ps, nil
}

// Render produces the full prompt for one aspect. Substitution is a single
// pass: placeholder-like strings inside the inserted bundle are never
// re-expanded.
func (ps *PromptSet) Render(aspect, scopeID, bundleText, sot string) (string, error) {
	aspectPrompt, ok := ps.aspects[aspect]
	if !ok {
		return "", fmt.Errorf("no prompt template for aspect %q", aspect)
	}
	var buf bytes.Buffer
	err := ps.base.Execute(&buf, PromptData{
		Aspect:       aspect,
		ScopeID:      scopeID,
		Bundle:       bundleText,
		SoT:          sot,
		AspectPrompt: aspectPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt for aspect %q: %w", aspect, err)
	}
	return buf.String(), nil
}
