package diagram

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "component", want: KindComponent},
		{in: "deployment", want: KindDeployment},
		{in: "class", want: KindClass},
		{in: "sequence", want: KindSequence},
		{in: "usecase", want: KindUsecase},
		{in: "activity", want: KindActivity},
		{in: "state", want: KindState},
		{in: "Component", want: KindComponent},
		{in: "  SEQUENCE  ", want: KindSequence},
		{in: "", wantErr: true},
		{in: "flowchart", wantErr: true},
		{in: "use case", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownKind) {
					t.Fatalf("ParseKind(%q) error = %v, want ErrUnknownKind", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKindsCoversEveryKind(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	if len(kinds) != 7 {
		t.Fatalf("expected 7 kinds, got %d: %v", len(kinds), kinds)
	}
	for _, k := range kinds {
		parsed, err := ParseKind(string(k))
		if err != nil || parsed != k {
			t.Errorf("Kinds() entry %q does not round-trip: %v", k, err)
		}
	}
}

func TestVerdictAdd(t *testing.T) {
	t.Parallel()

	v := OK()
	if !v.Valid {
		t.Fatal("OK() should start valid")
	}

	v.Add("first problem", "fix it")
	if v.Valid {
		t.Error("Add should mark the verdict invalid")
	}
	if len(v.Errors) != 1 || len(v.Suggestions) != 1 {
		t.Errorf("unexpected verdict after Add: %+v", v)
	}

	v.Add("second problem", "try this", "or this")
	if len(v.Errors) != 2 || len(v.Suggestions) != 3 {
		t.Errorf("unexpected verdict after second Add: %+v", v)
	}
}

func TestVerdictMerge(t *testing.T) {
	t.Parallel()

	a := Fail("marker missing", "add it")
	b := Fail("render rejected", "simplify")

	a.Merge(b)
	if a.Valid {
		t.Error("merged verdict should stay invalid")
	}
	if len(a.Errors) != 2 {
		t.Errorf("expected 2 merged errors, got %v", a.Errors)
	}
	if len(a.Suggestions) != 2 {
		t.Errorf("expected 2 merged suggestions, got %v", a.Suggestions)
	}

	ok := OK()
	ok.Merge(OK())
	if !ok.Valid {
		t.Error("merging two valid verdicts should stay valid")
	}

	ok.Merge(b)
	if ok.Valid {
		t.Error("merging an invalid verdict should invalidate")
	}
}
