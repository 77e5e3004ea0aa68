package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestStdLogger_JSON_MergesBaseAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatJSON, App: "medipal", Output: &buf})

	l.With(map[string]any{"component": "scheduler"}).Warn("skip reminder", map[string]any{
		"medication_id": "m1",
		"err":           errors.New("bad time"),
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["app"] != "medipal" || entry["component"] != "scheduler" || entry["medication_id"] != "m1" {
		t.Fatalf("unexpected fields: %v", entry)
	}
	if entry["err"] != "bad time" {
		t.Fatalf("expected error rendered as string, got %v", entry["err"])
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected level warn, got %v", entry["level"])
	}
}

func TestStdLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Warn, Output: &buf})

	l.Info("hidden", nil)
	l.Error("shown", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Fatalf("expected error line, got %q", out)
	}
}

func TestParseBackend(t *testing.T) {
	if ParseBackend(" ZAP ") != BackendZap {
		t.Fatalf("expected zap backend")
	}
	if ParseBackend("") != BackendStd {
		t.Fatalf("expected std backend by default")
	}
}

func TestZapLogger_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Format: FormatJSON, Backend: BackendZap, App: "medipal", Output: &buf})

	l.Info("scheduled", map[string]any{"count": 2})

	if !strings.Contains(buf.String(), `"msg":"scheduled"`) || !strings.Contains(buf.String(), `"count":2`) {
		t.Fatalf("unexpected zap output: %q", buf.String())
	}
}
