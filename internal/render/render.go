// Package render talks to an external PlantUML rendering server.
//
// It serves two purposes: fetching rendered images for the proxy endpoint,
// and acting as the second validation gate — if the real renderer rejects a
// diagram, the text is invalid no matter what the local syntax heuristics
// said. Rendering is strictly stricter than the syntax validator, never
// looser.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/plantflow/plantflow/internal/diagram"
)

// DefaultBaseURL is the public PlantUML server.
const DefaultBaseURL = "https://www.plantuml.com/plantuml"

// DefaultTimeout bounds a single render fetch.
const DefaultTimeout = 15 * time.Second

// Supported output formats for the render proxy.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// ErrUnsupportedFormat indicates a render format outside png/svg.
var ErrUnsupportedFormat = errors.New("unsupported render format")

// maxErrorBodyBytes bounds how much of an error response body is read for
// failure classification.
const maxErrorBodyBytes = 4096

// ClientConfig configures a render client.
type ClientConfig struct {
	BaseURL string        // PlantUML server base URL (default: DefaultBaseURL)
	Timeout time.Duration // Per-request timeout (default: DefaultTimeout)
	Logger  *slog.Logger  // Required
	HTTP    *http.Client  // Optional: custom client for tests
}

// Client fetches rendered diagrams from a PlantUML server.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a render client with the given configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpc := cfg.HTTP
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: baseURL,
		httpc:   httpc,
		logger:  cfg.Logger,
	}, nil
}

// Render fetches the rendered image for the diagram text.
// format must be FormatPNG or FormatSVG.
func (c *Client) Render(ctx context.Context, text, format string) ([]byte, error) {
	if format != FormatPNG && format != FormatSVG {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	encoded, err := Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encoding diagram: %w", err)
	}

	url := c.baseURL + "/" + format + "/" + encoded
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building render request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching render: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("render server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading render response: %w", err)
	}
	return body, nil
}

// ValidateByRendering submits the diagram to the render server and
// interprets success/failure as a validation verdict. Only success matters;
// the image payload itself is discarded.
//
// Failures are classified by inspecting the error text for known patterns.
// The server only gives us free text, so substring matching is unavoidable
// here — the pipeline's own retriable/fatal decision does NOT rely on it.
func (c *Client) ValidateByRendering(ctx context.Context, text string) diagram.Verdict {
	_, err := c.Render(ctx, text, FormatPNG)
	if err == nil {
		return diagram.OK()
	}

	c.logger.Debug("render validation failed", "error", err)
	return classifyRenderFailure(err)
}

// classifyRenderFailure maps a render error to a tailored error/suggestion
// pair.
func classifyRenderFailure(err error) diagram.Verdict {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "400"), strings.Contains(lower, "bad request"):
		return diagram.Fail(
			"render server rejected the diagram (HTTP 400): "+msg,
			"The server found a syntax error the local checks missed; simplify the failing construct and re-check every statement against basic PlantUML syntax",
		)
	case strings.Contains(lower, "syntax"):
		return diagram.Fail(
			"render server reported a syntax error: "+msg,
			"Fix the reported syntax error; prefer plain relationships and avoid advanced styling directives",
		)
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err), strings.Contains(lower, "timeout"):
		return diagram.Fail(
			"render request timed out: "+msg,
			"The diagram may be too large or complex to render; reduce the number of elements or split it into smaller diagrams",
		)
	default:
		return diagram.Fail(
			"rendering failed: "+msg,
			"Re-review the whole document for PlantUML compatibility and regenerate it with simpler constructs",
		)
	}
}
