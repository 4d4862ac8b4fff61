package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/plantflow/plantflow/internal/diagram"
)

// GenkitGenerator is the production Generator backed by Genkit with the
// Google AI plugin. Structured output is enforced through the output-type
// contract: the model must reply with exactly the candidate shape.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string // Provider-qualified, e.g. "googleai/gemini-2.5-flash"
}

// NewGenkitGenerator creates a generator bound to a Genkit instance and a
// provider-qualified model name.
func NewGenkitGenerator(g *genkit.Genkit, modelName string) (*GenkitGenerator, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if modelName == "" {
		return nil, errors.New("model name is required")
	}
	return &GenkitGenerator{g: g, modelName: modelName}, nil
}

// GenerateDiagram asks the model for a diagram candidate.
func (gg *GenkitGenerator) GenerateDiagram(ctx context.Context, promptText string, temperature float32) (*diagram.Candidate, error) {
	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithPrompt(promptText),
		ai.WithOutputType(diagram.Candidate{}),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("generating diagram: %w", err)
	}

	var out diagram.Candidate
	if err := resp.Output(&out); err != nil {
		return nil, fmt.Errorf("parsing structured output: %w", err)
	}
	return &out, nil
}

// EditDiagram asks the model for an updated diagram plus a changes summary.
func (gg *GenkitGenerator) EditDiagram(ctx context.Context, promptText string, temperature float32) (*diagram.EditResult, error) {
	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithPrompt(promptText),
		ai.WithOutputType(diagram.EditResult{}),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("editing diagram: %w", err)
	}

	var out diagram.EditResult
	if err := resp.Output(&out); err != nil {
		return nil, fmt.Errorf("parsing structured output: %w", err)
	}
	return &out, nil
}
