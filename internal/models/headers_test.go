package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeaderMapSet(t *testing.T) {
	h := NewHeaderMap()
	h.Set("Server", "nginx")
	h.Set("Date", "today")
	h.Set("Server", "apache")
	h.Set("server", "lower")

	want := []HeaderField{
		{Name: "Server", Value: "apache"},
		{Name: "Date", Value: "today"},
		{Name: "server", Value: "lower"},
	}
	if diff := cmp.Diff(want, h.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if h.Len() != 3 {
		t.Errorf("expected 3 names, got %d", h.Len())
	}
	if v, ok := h.Get("Server"); !ok || v != "apache" {
		t.Errorf("Get(Server) = %q, %v", v, ok)
	}
	if h.Has("Content-Type") {
		t.Error("unexpected Content-Type")
	}
}

func TestHeaderMapZeroValue(t *testing.T) {
	var h HeaderMap
	if h.Len() != 0 || h.Has("X") {
		t.Fatal("zero value should be empty")
	}
	h.Set("X", "1")
	if !h.Has("X") {
		t.Error("zero value should accept Set")
	}

	var nilMap *HeaderMap
	if nilMap.Len() != 0 || nilMap.Names() != nil || nilMap.Has("X") {
		t.Error("nil map should behave as empty")
	}
}

func TestHeaderMapFieldsIsCopy(t *testing.T) {
	h := NewHeaderMap()
	h.Set("A", "1")
	fields := h.Fields()
	fields[0].Value = "changed"
	if v, _ := h.Get("A"); v != "1" {
		t.Errorf("Fields should return a copy, map now has %q", v)
	}
}

func TestHeaderMapJSON(t *testing.T) {
	h := NewHeaderMap()
	h.Set("Server", "nginx")
	h.Set("HTTP/1.0 200 OK", "")

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	const want = `[{"name":"Server","value":"nginx"},{"name":"HTTP/1.0 200 OK","value":""}]`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var back HeaderMap
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(h.Fields(), back.Fields()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	empty, err := json.Marshal(NewHeaderMap())
	if err != nil {
		t.Fatalf("marshal empty: %v", err)
	}
	if string(empty) != "[]" {
		t.Errorf("empty map should encode as [], got %s", empty)
	}
}

func TestTargetString(t *testing.T) {
	tests := []struct {
		target Target
		addr   string
		str    string
	}{
		{Target{Scheme: SchemeHTTPS, Host: "example.com", Port: 443, Path: "/"}, "example.com:443", "https://example.com:443/"},
		{Target{Scheme: SchemeHTTP, Host: "::1", Port: 8080, Path: "/x"}, "[::1]:8080", "http://[::1]:8080/x"},
	}
	for _, tt := range tests {
		if got := tt.target.Address(); got != tt.addr {
			t.Errorf("Address() = %q, want %q", got, tt.addr)
		}
		if got := tt.target.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
	}
}

func TestNewRun(t *testing.T) {
	a, b := NewRun("top-1m"), NewRun("top-1m")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Status != StatusPending || a.Source != "top-1m" {
		t.Errorf("unexpected run meta: %+v", a.RunMeta)
	}
}
