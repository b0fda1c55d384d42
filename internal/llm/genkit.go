package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GenkitModel adapts a Genkit-registered model to the Provider
// interface. The model name is provider-qualified, e.g.
// "googleai/gemini-2.5-flash" or "openai/gpt-4o-mini".
type GenkitModel struct {
	g    *genkit.Genkit
	name string
}

// NewGenkitModel wraps the named model from an initialized Genkit
// instance.
func NewGenkitModel(g *genkit.Genkit, name string) *GenkitModel {
	return &GenkitModel{g: g, name: name}
}

// Name returns the provider-qualified model name.
func (m *GenkitModel) Name() string { return m.name }

// Generate runs a single-turn completion against the wrapped model.
func (m *GenkitModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, m.g,
		ai.WithModelName(m.name),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", m.name, err)
	}

	return resp.Text(), nil
}
