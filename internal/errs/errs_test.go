package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := E(KindLoad, "load fast", errors.New("cuda oom"))
	wrapped := fmt.Errorf("ensure: %w", base)
	if got := KindOf(wrapped); got != KindLoad {
		t.Fatalf("KindOf = %q, want %q", got, KindLoad)
	}
	if !IsLoad(wrapped) || IsGeneration(wrapped) {
		t.Fatalf("predicates disagree with kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("untagged error should be internal")
	}
	if KindOf(nil) != "" {
		t.Fatalf("nil error should have empty kind")
	}
}

func TestValidationMessageNamesField(t *testing.T) {
	err := Validation("steps", "must be between 1 and 100")
	if FieldOf(err) != "steps" {
		t.Fatalf("field = %q", FieldOf(err))
	}
	if got, want := err.Error(), "invalid steps: must be between 1 and 100"; got != want {
		t.Fatalf("msg = %q, want %q", got, want)
	}
}

func TestErrorWithoutCause(t *testing.T) {
	e := &Error{Kind: KindBusy, Op: "admit"}
	if e.Error() != "admit: busy" {
		t.Fatalf("msg = %q", e.Error())
	}
}
