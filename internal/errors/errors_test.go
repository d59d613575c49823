package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	cause := stderrors.New("connection refused")
	tests := []struct {
		err  *Error
		want string
	}{
		{Input("discount must be in [0,1)"), "[INPUT_ERROR] discount must be in [0,1)"},
		{Source("cannot read listings", cause), "[SOURCE_ERROR] cannot read listings: connection refused"},
		{NotFound("r1"), "[NOT_FOUND] run not found: r1"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsTypeFollowsWrapping(t *testing.T) {
	inner := Structural("missing column item_id").WithContext("column", "item_id")
	wrapped := fmt.Errorf("load snapshot: %w", inner)

	if !IsType(wrapped, TypeStructural) {
		t.Error("IsType should find the structural error through fmt wrapping")
	}
	if IsType(wrapped, TypeInput) {
		t.Error("IsType matched the wrong type")
	}
	if IsType(stderrors.New("plain"), TypeInternal) {
		t.Error("plain errors have no type")
	}

	outer := Config("invalid scan parameters", Input("bad strategy"))
	if !IsType(outer, TypeConfig) {
		t.Error("outermost type should win")
	}
	if !stderrors.Is(outer, outer.Cause) {
		t.Error("Unwrap should expose the cause")
	}
	if inner.Context["column"] != "item_id" {
		t.Errorf("context = %v", inner.Context)
	}
}
