package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"meetflow/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrUpstreamFetch, "fetch", "transcript", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUpstreamFetch) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fetch", "transcript", "request failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithDerivedMarker(t *testing.T) {
	errTooShort := fmt.Errorf("%w: transcript too short", services.ErrUpstreamFetch)
	err := services.Wrap(errTooShort, "fetch", "", "42 characters", nil)
	if !errors.Is(err, errTooShort) {
		t.Fatalf("expected derived marker match, got %v", err)
	}
	if services.KindOf(err) != services.ErrorKindUpstream {
		t.Fatalf("expected upstream kind, got %s", services.KindOf(err))
	}
}

func TestDetailsClassifiesErrors(t *testing.T) {
	cause := errors.New("unexpected token")
	err := fmt.Errorf("process: %w", services.Wrap(services.ErrAnalysis, "analyze", "decode", "invalid analyzer output", cause))

	details := services.Details(err)
	if details.Kind != services.ErrorKindAnalysis {
		t.Fatalf("expected analysis kind, got %s", details.Kind)
	}
	if details.Step != "analyze" || details.Operation != "decode" {
		t.Fatalf("unexpected step/operation: %+v", details)
	}
	if details.Message != "invalid analyzer output: unexpected token" {
		t.Fatalf("unexpected message: %q", details.Message)
	}
	if details.Cause != cause {
		t.Fatalf("expected cause to be preserved")
	}
	if details.Hint == "" {
		t.Fatal("expected hint")
	}

	plain := services.Details(errors.New("disk full"))
	if plain.Kind != services.ErrorKindUnknown || plain.Message != "disk full" {
		t.Fatalf("unexpected plain details: %+v", plain)
	}
}
