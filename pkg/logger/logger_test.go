package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInfoCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "payments-core", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithProviderID(ctx, "square")
	ctx = logg.WithCollectionID(ctx, "paycol-abc")
	logg.Info(ctx, "authorize start")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["service"] != "payments-core" {
		t.Fatalf("missing service field: %v", entry)
	}
	if entry["request_id"] != "req-1" || entry["provider_id"] != "square" {
		t.Fatalf("missing context fields: %v", entry)
	}
	if entry["payment_collection_id"] != "paycol-abc" {
		t.Fatalf("missing collection field: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty level should default to info")
	}
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug should parse")
	}
	if ParseLevel("not-a-level") != zerolog.InfoLevel {
		t.Fatal("unknown level should default to info")
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "payments-core", Output: &buf})

	logg.Error(context.Background(), "provider call failed", context.DeadlineExceeded)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["stack"] == nil || entry["stack"] == "" {
		t.Fatal("expected stack trace on error logs")
	}
}
