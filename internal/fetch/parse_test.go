package fetch

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hakim/headerstat/internal/models"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name   string
		target models.Target
		want   string
	}{
		{
			name:   "root path",
			target: models.Target{Scheme: models.SchemeHTTPS, Host: "example.com", Port: 443, Path: "/"},
			want:   "HEAD / HTTP/1.0\r\nHost: example.com\r\n\r\n",
		},
		{
			name:   "empty path defaults to root",
			target: models.Target{Scheme: models.SchemeHTTP, Host: "example.com", Port: 80},
			want:   "HEAD / HTTP/1.0\r\nHost: example.com\r\n\r\n",
		},
		{
			name:   "path with query",
			target: models.Target{Scheme: models.SchemeHTTP, Host: "example.com", Port: 80, Path: "/a?b=c"},
			want:   "HEAD /a?b=c HTTP/1.0\r\nHost: example.com\r\n\r\n",
		},
		{
			name:   "ipv6 host is bracketed",
			target: models.Target{Scheme: models.SchemeHTTP, Host: "::1", Port: 80, Path: "/"},
			want:   "HEAD / HTTP/1.0\r\nHost: [::1]\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildRequest(tt.target)
			if err != nil {
				t.Fatalf("BuildRequest() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("BuildRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRequestUnencodableHost(t *testing.T) {
	_, err := BuildRequest(models.Target{Scheme: models.SchemeHTTP, Host: "例え.jp", Port: 80, Path: "/"})
	if err == nil {
		t.Fatal("expected an error for a host outside ISO-8859-1")
	}
}

func TestReadHeaders(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		maxBytes       int64
		skipStatusLine bool
		want           []models.HeaderField
		wantErr        error
	}{
		{
			name:  "simple response",
			input: "HTTP/1.1 200 OK\r\nServer: nginx\r\nContent-Type: text/html\r\n\r\n<html>body</html>",
			want: []models.HeaderField{
				{Name: "HTTP/1.1 200 OK", Value: ""},
				{Name: "Server", Value: "nginx"},
				{Name: "Content-Type", Value: "text/html"},
			},
		},
		{
			name:           "status line skipped",
			input:          "HTTP/1.1 200 OK\r\nServer: nginx\r\n\r\n",
			skipStatusLine: true,
			want:           []models.HeaderField{{Name: "Server", Value: "nginx"}},
		},
		{
			name:           "skip only applies to a leading HTTP line",
			input:          "Server: nginx\r\nHTTP/1.1 weird\r\n\r\n",
			skipStatusLine: true,
			want: []models.HeaderField{
				{Name: "Server", Value: "nginx"},
				{Name: "HTTP/1.1 weird", Value: ""},
			},
		},
		{
			name:  "trims names and values and splits on first colon",
			input: "  X-Pad :   spaced out  \r\nLocation: https://example.com:8443/x\r\n\r\n",
			want: []models.HeaderField{
				{Name: "X-Pad", Value: "spaced out"},
				{Name: "Location", Value: "https://example.com:8443/x"},
			},
		},
		{
			name:  "empty value and colon-less line",
			input: "X-Empty:\r\nNoColonHere\r\n\r\n",
			want: []models.HeaderField{
				{Name: "X-Empty", Value: ""},
				{Name: "NoColonHere", Value: ""},
			},
		},
		{
			name:  "last write wins and keeps first position",
			input: "Set-Cookie: a=1\r\nVary: Accept\r\nSet-Cookie: b=2\r\n\r\n",
			want: []models.HeaderField{
				{Name: "Set-Cookie", Value: "b=2"},
				{Name: "Vary", Value: "Accept"},
			},
		},
		{
			name:  "names are case sensitive",
			input: "server: a\r\nServer: b\r\n\r\n",
			want: []models.HeaderField{
				{Name: "server", Value: "a"},
				{Name: "Server", Value: "b"},
			},
		},
		{
			name:  "bare LF line endings",
			input: "Server: nginx\nVia: proxy\n\nbody",
			want: []models.HeaderField{
				{Name: "Server", Value: "nginx"},
				{Name: "Via", Value: "proxy"},
			},
		},
		{
			name:  "end of stream without blank line",
			input: "Server: nginx\r\nVia: proxy",
			want: []models.HeaderField{
				{Name: "Server", Value: "nginx"},
				{Name: "Via", Value: "proxy"},
			},
		},
		{
			name:  "no headers at all",
			input: "",
			want:  []models.HeaderField{},
		},
		{
			name:  "immediate blank line",
			input: "\r\nServer: never-read\r\n\r\n",
			want:  []models.HeaderField{},
		},
		{
			name:  "latin-1 bytes decoded",
			input: "X-Name: caf\xe9\r\n\r\n",
			want:  []models.HeaderField{{Name: "X-Name", Value: "café"}},
		},
		{
			name:     "header section over the limit",
			input:    "X-Long: " + strings.Repeat("a", 100) + "\r\n\r\n",
			maxBytes: 32,
			wantErr:  ErrHeaderTooLarge,
		},
		{
			name:     "header section within the limit",
			input:    "Server: nginx\r\n\r\n" + strings.Repeat("b", 100),
			maxBytes: 32,
			want:     []models.HeaderField{{Name: "Server", Value: "nginx"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadHeaders(strings.NewReader(tt.input), tt.maxBytes, tt.skipStatusLine)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadHeaders() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadHeaders() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Fields()); diff != "" {
				t.Errorf("ReadHeaders() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
