package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func TestSortKeys(t *testing.T) {
	keys := []string{"msg", "zeta", "file", "alpha", "level", "comp", "time"}
	sortKeys(keys)
	want := []string{"time", "level", "comp", "file", "alpha", "zeta", "msg"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("sortKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestSetup(t *testing.T) {
	defer Setup(DefaultLogLevel.String(), false)

	if err := Setup("debug", false); err != nil {
		t.Fatalf("Setup(debug) error: %v", err)
	}
	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", Log.GetLevel())
	}

	if err := Setup("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestCompLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer Setup(DefaultLogLevel.String(), false)

	if err := Setup("info", true); err != nil {
		t.Fatal(err)
	}
	NewCompLogger("fetch").WithField("target", "https://example.com:443/").Info("fetched")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry[ComponentFieldName] != "fetch" {
		t.Errorf("expected comp=fetch, got %v", entry[ComponentFieldName])
	}
	if entry["msg"] != "fetched" {
		t.Errorf("expected msg=fetched, got %v", entry["msg"])
	}
	if file, _ := entry["file"].(string); !strings.HasPrefix(file, "logger_test.go:") {
		t.Errorf("expected caller file to be logger_test.go, got %q", file)
	}
}
