package mderr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessageEmbedsFragment(t *testing.T) {
	err := Whitespace("WS-0001", 3, "-  double space", "too many leading spaces")
	if !strings.Contains(err.Error(), "double space") {
		t.Fatalf("expected error to embed offending fragment, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error to embed line number, got %q", err.Error())
	}
}

func TestErrorsAsRecoversStructuredFields(t *testing.T) {
	var err error = Sectioning("SECT-0001", 2, "### H3", "heading level jumped from %d to %d", 1, 3)

	var mderr *Error
	if !errors.As(err, &mderr) {
		t.Fatalf("expected errors.As to recover *Error")
	}
	if mderr.Class != ClassSectioning {
		t.Fatalf("expected ClassSectioning, got %s", mderr.Class)
	}
	if mderr.Fragment != "### H3" {
		t.Fatalf("expected fragment to survive, got %q", mderr.Fragment)
	}
}

func TestDispatchHasNoLine(t *testing.T) {
	err := Dispatch("ENC-0001", "<unknown>", "encoder reached unrecognized node shape")
	if err.Line != 0 {
		t.Fatalf("expected dispatch errors to have no line, got %d", err.Line)
	}
	if err.Class != ClassDispatch {
		t.Fatalf("expected ClassDispatch, got %s", err.Class)
	}
}
