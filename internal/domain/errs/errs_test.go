package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorRendering(t *testing.T) {
	cause := errors.New("connection refused")
	err := New("store/ping", CodeNetwork,
		WithMessage("store unreachable"),
		WithMatch("X"),
		WithCause(cause))

	got := err.Error()
	want := `op=store/ping code=network match=X message="store unreachable" cause="connection refused"`
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorRenderingMinimal(t *testing.T) {
	err := New("", Code(""))
	if got := err.Error(); got != "op=unknown code=unknown" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New("op", CodeNetwork, WithCause(cause))
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestClientMessage(t *testing.T) {
	withMsg := New("op", CodeNotFound, WithMessage("match not found: X"), WithCause(errors.New("secret")))
	if got := withMsg.ClientMessage(); got != "match not found: X" {
		t.Errorf("ClientMessage() = %q", got)
	}

	withoutMsg := New("op", CodeUnavailable)
	if got := withoutMsg.ClientMessage(); got != "unavailable" {
		t.Errorf("ClientMessage() = %q", got)
	}
}

func TestCodeOfUnwrapsWrappedEnvelopes(t *testing.T) {
	inner := New("store/read", CodeNotFound)
	wrapped := fmt.Errorf("outer context: %w", inner)

	if CodeOf(wrapped) != CodeNotFound {
		t.Errorf("CodeOf = %q", CodeOf(wrapped))
	}
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound")
	}
	if IsTransient(wrapped) {
		t.Error("did not expect IsTransient")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("expected empty code for plain error")
	}
}
