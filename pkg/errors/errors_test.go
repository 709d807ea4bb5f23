package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeInvalidData, http.StatusUnprocessableEntity},
		{CodeNotAllowed, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnexpectedState, http.StatusConflict},
		{CodeProvider, http.StatusBadGateway},
		{CodeDependency, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := Wrap(CodeProvider, cause, "capture failed")

	typed := As(err)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeProvider {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if typed.Unwrap() != cause {
		t.Fatal("expected cause to be preserved")
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeInvalidData, "payment already captured")
	outer := fmt.Errorf("processing batch: %w", inner)

	typed := As(outer)
	if typed == nil || typed.Code() != CodeInvalidData {
		t.Fatalf("expected INVALID_DATA through wrapping, got %v", typed)
	}
	if !IsCode(outer, CodeInvalidData) {
		t.Fatal("IsCode should match through wrapping")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeProvider, "refund failed").WithDetails(map[string]any{"provider_id": "square"})
	details, ok := err.Details().(map[string]any)
	if !ok || details["provider_id"] != "square" {
		t.Fatalf("unexpected details: %v", err.Details())
	}
}
