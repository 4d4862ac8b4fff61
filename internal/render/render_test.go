package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/plantflow/plantflow/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		BaseURL: srv.URL,
		Logger:  log.NewNop(),
		HTTP:    srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresLogger(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("expected an error for a missing logger")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Parallel()

	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("fake-png-bytes"))
	})

	body, err := c.Render(context.Background(), "@startuml\n[A] --> [B]\n@enduml", FormatPNG)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(body) != "fake-png-bytes" {
		t.Errorf("unexpected body %q", body)
	}

	if !strings.HasPrefix(gotPath, "/png/") {
		t.Fatalf("request path %q should start with /png/", gotPath)
	}
	for _, r := range strings.TrimPrefix(gotPath, "/png/") {
		if !strings.ContainsRune(plantumlAlphabet, r) {
			t.Errorf("encoded path segment contains %q, outside the transport alphabet", r)
		}
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.Render(context.Background(), "@startuml\n@enduml", "pdf")
	if err == nil || !strings.Contains(err.Error(), "unsupported render format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestRenderServerError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "cannot decode diagram", http.StatusBadRequest)
	})

	_, err := c.Render(context.Background(), "@startuml\nbroken\n@enduml", FormatPNG)
	if err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "cannot decode diagram") {
		t.Errorf("error should carry status and body snippet, got: %v", err)
	}
}

func TestValidateByRenderingSuccess(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("png"))
	})

	v := c.ValidateByRendering(context.Background(), "@startuml\n[A] --> [B]\n@enduml")
	if !v.Valid {
		t.Errorf("expected valid verdict, got %+v", v)
	}
}

func TestValidateByRenderingClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantErrPart string
		wantSugPart string
	}{
		{
			name:        "bad request",
			status:      http.StatusBadRequest,
			body:        "cannot process",
			wantErrPart: "HTTP 400",
			wantSugPart: "syntax error the local checks missed",
		},
		{
			name:        "reported syntax error",
			status:      http.StatusInternalServerError,
			body:        "syntax error at line 3",
			wantErrPart: "syntax error",
			wantSugPart: "Fix the reported syntax error",
		},
		{
			name:        "generic failure",
			status:      http.StatusInternalServerError,
			body:        "boom",
			wantErrPart: "rendering failed",
			wantSugPart: "PlantUML compatibility",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, tt.body, tt.status)
			})

			v := c.ValidateByRendering(context.Background(), "@startuml\nX\n@enduml")
			if v.Valid {
				t.Fatal("expected invalid verdict")
			}
			if len(v.Errors) != 1 || !strings.Contains(v.Errors[0], tt.wantErrPart) {
				t.Errorf("errors = %v, want one containing %q", v.Errors, tt.wantErrPart)
			}
			if len(v.Suggestions) != 1 || !strings.Contains(v.Suggestions[0], tt.wantSugPart) {
				t.Errorf("suggestions = %v, want one containing %q", v.Suggestions, tt.wantSugPart)
			}
		})
	}
}

func TestValidateByRenderingTimeout(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("png"))
	})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	v := c.ValidateByRendering(ctx, "@startuml\nX\n@enduml")
	if v.Valid {
		t.Fatal("expected invalid verdict")
	}
	if len(v.Errors) != 1 || !strings.Contains(v.Errors[0], "timed out") {
		t.Errorf("errors = %v, want a timeout classification", v.Errors)
	}
	if !strings.Contains(strings.Join(v.Suggestions, " "), "too large or complex") {
		t.Errorf("suggestions = %v, want complexity-reduction advice", v.Suggestions)
	}
}
