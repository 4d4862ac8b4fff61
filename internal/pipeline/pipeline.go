// Package pipeline implements the generation/validation/retry orchestrator.
//
// A single call is a strictly sequential attempt loop: build the prompt,
// invoke the model with a structured output contract, run the local syntax
// validator, then validate by real rendering. A failing validator produces
// a retriable outcome whose verdict feeds the next attempt's prompt as
// corrective feedback; a failing model call is fatal and propagates without
// consuming attempt budget. The loop is bounded by MaxRetries and always
// terminates.
//
// Retriability is decided by explicit outcome variants, not by matching
// substrings in error messages — validators return verdicts, never errors,
// and only this package converts a failing verdict into an error.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plantflow/plantflow/internal/cache"
	"github.com/plantflow/plantflow/internal/diagram"
	"github.com/plantflow/plantflow/internal/prompt"
	"github.com/plantflow/plantflow/internal/syntax"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultMaxRetries       = 3
	DefaultBaseDelay        = 500 * time.Millisecond
	DefaultMaxDelay         = 2 * time.Second
	DefaultTemperature      = float32(0.7)
	DefaultRetryTemperature = float32(0.3)
)

// Generator invokes the generative model with a structured output contract.
// The reply is constrained to exactly the candidate shape, which removes
// free-form parsing ambiguity; a model that cannot satisfy the shape
// surfaces that as a generation error.
type Generator interface {
	GenerateDiagram(ctx context.Context, promptText string, temperature float32) (*diagram.Candidate, error)
	EditDiagram(ctx context.Context, promptText string, temperature float32) (*diagram.EditResult, error)
}

// Renderer is the render-validation gate.
type Renderer interface {
	ValidateByRendering(ctx context.Context, text string) diagram.Verdict
}

// ResultCache memoizes accepted candidates. A nil cache disables caching.
type ResultCache interface {
	Get(key string) (diagram.Candidate, bool)
	Set(key string, c diagram.Candidate)
}

// Config contains all parameters for the pipeline.
type Config struct {
	Generator Generator    // Required
	Renderer  Renderer     // Required
	Logger    *slog.Logger // Required

	Cache ResultCache // Optional: nil disables result caching

	MaxRetries int           // Attempt budget (default 3)
	BaseDelay  time.Duration // Backoff unit; delay grows linearly per attempt
	MaxDelay   time.Duration // Backoff cap

	Temperature      float32 // First-attempt sampling temperature
	RetryTemperature float32 // Lower temperature for attempts ≥2

	SyntaxMode syntax.Mode // Quote-parity policy (default per-line)
}

func (cfg Config) validate() error {
	if cfg.Generator == nil {
		return fmt.Errorf("generator is required")
	}
	if cfg.Renderer == nil {
		return fmt.Errorf("renderer is required")
	}
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// Pipeline is the generation orchestrator. It is stateless between calls;
// two concurrent invocations are fully independent apart from the optional
// shared cache.
type Pipeline struct {
	generator Generator
	renderer  Renderer
	cache     ResultCache
	logger    *slog.Logger

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	temperature      float32
	retryTemperature float32

	syntaxMode syntax.Mode
}

// New creates a Pipeline, applying defaults for zero-valued settings.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.RetryTemperature == 0 {
		cfg.RetryTemperature = DefaultRetryTemperature
	}

	return &Pipeline{
		generator:        cfg.Generator,
		renderer:         cfg.Renderer,
		cache:            cfg.Cache,
		logger:           cfg.Logger,
		maxRetries:       cfg.MaxRetries,
		baseDelay:        cfg.BaseDelay,
		maxDelay:         cfg.MaxDelay,
		temperature:      cfg.Temperature,
		retryTemperature: cfg.RetryTemperature,
		syntaxMode:       cfg.SyntaxMode,
	}, nil
}

// attemptOutcome is the tagged result of validating one attempt.
// Success and retriable failure are the only variants: validators never
// produce fatal conditions, and model-call failures short-circuit the loop
// before validation runs.
type attemptOutcome struct {
	ok      bool
	stage   string // "syntax" or "render" when !ok
	verdict diagram.Verdict
}

// Generate runs the full pipeline for a generation request.
// The candidate it returns has passed both the syntax validator and the
// render validator in the same attempt.
func (p *Pipeline) Generate(ctx context.Context, description string, kind diagram.Kind) (*diagram.Candidate, error) {
	key := cache.GenerationKey(description, string(kind))
	if p.cache != nil {
		if c, ok := p.cache.Get(key); ok {
			p.logger.Debug("generation cache hit", "kind", kind)
			return &c, nil
		}
	}

	var (
		actx       = prompt.AttemptContext{}
		cumulative diagram.Verdict
		lastText   string
	)
	cumulative = diagram.OK()

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		actx.Attempt = attempt

		cand, err := p.generator.GenerateDiagram(ctx,
			prompt.BuildGenerate(description, kind, actx),
			p.temperatureFor(attempt),
		)
		if err != nil {
			// Model-side failure: fatal, propagate without retrying.
			return nil, fmt.Errorf("%w: %w", ErrModelInvocation, err)
		}
		lastText = cand.Diagram

		outcome := p.validateAttempt(ctx, cand.Diagram, kind)
		if outcome.ok {
			// The model sometimes omits or contradicts the kind; the
			// requested kind wins.
			if cand.Kind != kind {
				cand.Kind = kind
			}
			if p.cache != nil {
				p.cache.Set(key, *cand)
			}
			p.logger.Debug("diagram accepted", "kind", kind, "attempts", attempt)
			return cand, nil
		}

		cumulative.Merge(outcome.verdict)
		p.logger.Debug("attempt failed validation",
			"attempt", attempt,
			"stage", outcome.stage,
			"errors", len(outcome.verdict.Errors),
		)

		if attempt == p.maxRetries {
			break
		}

		v := outcome.verdict
		actx.LastVerdict = &v
		actx.LastErr = fmt.Errorf("%s validation failed with %d error(s)", outcome.stage, len(v.Errors))

		if err := p.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{
		Attempts:    p.maxRetries,
		Errors:      cumulative.Errors,
		Suggestions: cumulative.Suggestions,
		LastDiagram: lastText,
	}
}

// Edit applies a plain-English instruction to an existing diagram.
// The same attempt loop applies; kind-specific syntax checks are skipped
// because edits never change the diagram kind.
func (p *Pipeline) Edit(ctx context.Context, existing, instruction string) (*diagram.EditResult, error) {
	var (
		actx       = prompt.AttemptContext{}
		cumulative diagram.Verdict
		lastText   string
	)
	cumulative = diagram.OK()

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		actx.Attempt = attempt

		res, err := p.generator.EditDiagram(ctx,
			prompt.BuildEdit(existing, instruction, actx),
			p.temperatureFor(attempt),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelInvocation, err)
		}
		lastText = res.Diagram

		outcome := p.validateAttempt(ctx, res.Diagram, diagram.KindUnknown)
		if outcome.ok {
			p.logger.Debug("edit accepted", "attempts", attempt)
			return res, nil
		}

		cumulative.Merge(outcome.verdict)
		p.logger.Debug("edit attempt failed validation",
			"attempt", attempt,
			"stage", outcome.stage,
			"errors", len(outcome.verdict.Errors),
		)

		if attempt == p.maxRetries {
			break
		}

		v := outcome.verdict
		actx.LastVerdict = &v
		actx.LastErr = fmt.Errorf("%s validation failed with %d error(s)", outcome.stage, len(v.Errors))

		if err := p.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{
		Attempts:    p.maxRetries,
		Errors:      cumulative.Errors,
		Suggestions: cumulative.Suggestions,
		LastDiagram: lastText,
	}
}

// validateAttempt runs the two validation gates in order. Rendering only
// runs once syntax passes; its suggestions are then augmented with a note
// narrowing the model's attention to server compatibility.
func (p *Pipeline) validateAttempt(ctx context.Context, text string, kind diagram.Kind) attemptOutcome {
	sv := syntax.ValidateMode(text, kind, p.syntaxMode)
	if !sv.Valid {
		return attemptOutcome{stage: "syntax", verdict: sv}
	}

	rv := p.renderer.ValidateByRendering(ctx, text)
	if !rv.Valid {
		rv.Suggestions = append(rv.Suggestions,
			"Local syntax checks passed; focus on what the render server rejected instead of re-checking basic syntax")
		return attemptOutcome{stage: "render", verdict: rv}
	}

	return attemptOutcome{ok: true}
}

// temperatureFor lowers the sampling temperature on retries so corrections
// stay close to the previous attempt.
func (p *Pipeline) temperatureFor(attempt int) float32 {
	if attempt <= 1 {
		return p.temperature
	}
	return p.retryTemperature
}

// backoff sleeps before the next attempt. The delay grows linearly with
// the attempt index and is capped — its purpose is only to avoid hammering
// the model API, not real exponential backoff semantics.
func (p *Pipeline) backoff(ctx context.Context, attempt int) error {
	delay := min(time.Duration(attempt)*p.baseDelay, p.maxDelay)
	select {
	case <-ctx.Done():
		return fmt.Errorf("canceled during retry backoff: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}
