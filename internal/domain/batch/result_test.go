package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("acoustics-2024", 12)
	if r.ID() != "acoustics-2024" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Blocks() != 12 {
		t.Errorf("Blocks() = %d", r.Blocks())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("duplicate order")
	r := NewError("daylight", err)
	if r.ID() != "daylight" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestFailed(t *testing.T) {
	results := []Result{NewOK("a", 1), NewError("b", errors.New("x")), NewError("c", errors.New("y"))}
	if got := Failed(results); got != 2 {
		t.Errorf("Failed() = %d", got)
	}
}
