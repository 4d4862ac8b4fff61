package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/plantflow/plantflow/internal/cache"
	"github.com/plantflow/plantflow/internal/config"
	"github.com/plantflow/plantflow/internal/diagram"
	"github.com/plantflow/plantflow/internal/pipeline"
	"github.com/plantflow/plantflow/internal/render"
	"github.com/plantflow/plantflow/internal/syntax"
)

// maxRequestBody caps JSON request bodies. The length ceilings on the
// individual fields are far below this; the cap only guards decoding.
const maxRequestBody = 1 << 20 // 1 MB

// diagramPipeline is the orchestrator surface the handlers consume.
// Defined here (by the consumer) so tests can substitute a stub.
type diagramPipeline interface {
	Generate(ctx context.Context, description string, kind diagram.Kind) (*diagram.Candidate, error)
	Edit(ctx context.Context, existing, instruction string) (*diagram.EditResult, error)
}

// imageRenderer fetches rendered diagrams for the proxy endpoint.
type imageRenderer interface {
	Render(ctx context.Context, text, format string) ([]byte, error)
}

// diagrams handles the diagram generation/edit/validate endpoints.
type diagrams struct {
	pipeline    diagramPipeline
	renderer    imageRenderer
	renderCache *cache.Cache[[]byte] // nil disables image caching
	logger      *slog.Logger
}

// GenerateRequest is the payload for POST /api/v1/diagrams.
type GenerateRequest struct {
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

// GenerateResponse is the success payload for POST /api/v1/diagrams.
type GenerateResponse struct {
	Explanation string `json:"explanation"`
	Diagram     string `json:"diagram"`
	Kind        string `json:"kind"`
}

// EditRequest is the payload for POST /api/v1/diagrams/edit.
type EditRequest struct {
	Diagram     string `json:"diagram"`
	Instruction string `json:"instruction"`
}

// EditResponse is the success payload for POST /api/v1/diagrams/edit.
type EditResponse struct {
	Diagram string `json:"diagram"`
	Changes string `json:"changes"`
}

// ValidateRequest is the payload for POST /api/v1/diagrams/validate.
type ValidateRequest struct {
	Diagram string `json:"diagram"`
	Kind    string `json:"kind,omitempty"`
}

// RenderRequest is the payload for POST /api/v1/render.
type RenderRequest struct {
	Diagram string `json:"diagram"`
	Format  string `json:"format,omitempty"` // png (default) or svg
}

// generate handles POST /api/v1/diagrams.
func (h *diagrams) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "missing_description", "description is required", h.logger)
		return
	}
	if len(req.Description) > diagram.MaxDescriptionLen {
		writeError(w, http.StatusBadRequest, "description_too_long",
			fmt.Sprintf("description exceeds %d characters", diagram.MaxDescriptionLen), h.logger)
		return
	}
	kind, err := diagram.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_kind",
			fmt.Sprintf("kind must be one of %v", diagram.Kinds()), h.logger)
		return
	}

	cand, err := h.pipeline.Generate(r.Context(), req.Description, kind)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Explanation: cand.Explanation,
		Diagram:     cand.Diagram,
		Kind:        string(cand.Kind),
	}, h.logger)
}

// edit handles POST /api/v1/diagrams/edit.
func (h *diagrams) edit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if req.Diagram == "" {
		writeError(w, http.StatusBadRequest, "missing_diagram", "diagram is required", h.logger)
		return
	}
	if req.Instruction == "" {
		writeError(w, http.StatusBadRequest, "missing_instruction", "instruction is required", h.logger)
		return
	}
	if len(req.Instruction) > diagram.MaxInstructionLen {
		writeError(w, http.StatusBadRequest, "instruction_too_long",
			fmt.Sprintf("instruction exceeds %d characters", diagram.MaxInstructionLen), h.logger)
		return
	}

	res, err := h.pipeline.Edit(r.Context(), req.Diagram, req.Instruction)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EditResponse{
		Diagram: res.Diagram,
		Changes: res.Changes,
	}, h.logger)
}

// validate handles POST /api/v1/diagrams/validate: the local syntax
// validator alone, so the UI can lint while the user types. The verdict is
// the result — a failing diagram still returns 200.
func (h *diagrams) validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	kind := diagram.KindUnknown
	if req.Kind != "" {
		parsed, err := diagram.ParseKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown_kind",
				fmt.Sprintf("kind must be one of %v", diagram.Kinds()), h.logger)
			return
		}
		kind = parsed
	}

	writeJSON(w, http.StatusOK, syntax.Validate(req.Diagram, kind), h.logger)
}

// kinds handles GET /api/v1/kinds.
func (h *diagrams) kinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]diagram.Kind{"kinds": diagram.Kinds()}, h.logger)
}

// renderImage handles POST /api/v1/render: proxies a rendered image from
// the PlantUML server, memoized in the short-TTL image cache.
func (h *diagrams) renderImage(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if req.Diagram == "" {
		writeError(w, http.StatusBadRequest, "missing_diagram", "diagram is required", h.logger)
		return
	}
	format := req.Format
	if format == "" {
		format = render.FormatPNG
	}
	if format != render.FormatPNG && format != render.FormatSVG {
		writeError(w, http.StatusBadRequest, "unsupported_format", "format must be png or svg", h.logger)
		return
	}

	key := cache.RenderKey(req.Diagram, format)
	img, ok := h.renderCache.Get(key)
	if !ok {
		var err error
		img, err = h.renderer.Render(r.Context(), req.Diagram, format)
		if err != nil {
			h.logger.Warn("render proxy failed", "error", err)
			writeError(w, http.StatusBadGateway, "render_failed", err.Error(), h.logger)
			return
		}
		h.renderCache.Set(key, img)
	}

	if format == render.FormatSVG {
		w.Header().Set("Content-Type", "image/svg+xml")
	} else {
		w.Header().Set("Content-Type", "image/png")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// writePipelineError maps pipeline failures to HTTP status codes:
// configuration/credential → 500, retry exhaustion → 502 with embedded
// diagnostics, any other model-side failure → 502.
func (h *diagrams) writePipelineError(w http.ResponseWriter, err error) {
	var exhausted *pipeline.ExhaustedError
	switch {
	case errors.Is(err, config.ErrMissingAPIKey):
		h.logger.Error("model credential missing", "error", err)
		writeError(w, http.StatusInternalServerError, "configuration_error", "service is not configured", h.logger)

	case errors.As(err, &exhausted):
		h.logger.Warn("generation exhausted retry budget", "attempts", exhausted.Attempts)
		writeJSON(w, http.StatusBadGateway, DiagnosticResponse{
			Error:       "generation_failed",
			Message:     exhausted.Error(),
			Errors:      exhausted.Errors,
			Suggestions: exhausted.Suggestions,
			LastDiagram: exhausted.LastDiagram,
		}, h.logger)

	default:
		h.logger.Error("model invocation failed", "error", err)
		writeError(w, http.StatusBadGateway, "model_error", err.Error(), h.logger)
	}
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON request body", logger)
		return false
	}
	return true
}
