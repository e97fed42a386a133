// Package target turns raw URL strings into connection targets.
// Resolution is purely syntactic and never touches the network.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hakim/headerstat/internal/models"
)

// ErrInvalidURL is returned when a string does not yield both a supported
// scheme and a non-empty host.
var ErrInvalidURL = errors.New("invalid URL")

// InvalidEntry records an input that could not be resolved.
type InvalidEntry struct {
	Input string
	Err   error
}

// Resolve parses raw into a Target.
//
// The port is the scheme default (http 80, https 443) unless the URL carries
// an explicit one. An empty path becomes "/"; a query string is kept as part
// of the request target.
func Resolve(raw string) (models.Target, error) {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil {
		return models.Target{}, fmt.Errorf("%w %q: %v", ErrInvalidURL, raw, err)
	}

	scheme := models.Scheme(strings.ToLower(u.Scheme))
	if scheme == "" || u.Host == "" {
		return models.Target{}, fmt.Errorf("%w %q: missing scheme or host", ErrInvalidURL, raw)
	}
	if scheme != models.SchemeHTTP && scheme != models.SchemeHTTPS {
		return models.Target{}, fmt.Errorf("%w %q: unsupported scheme %q", ErrInvalidURL, raw, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return models.Target{}, fmt.Errorf("%w %q: empty host", ErrInvalidURL, raw)
	}

	port := scheme.DefaultPort()
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return models.Target{}, fmt.Errorf("%w %q: bad port %q", ErrInvalidURL, raw, p)
		}
		port = n
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return models.Target{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		Raw:    raw,
	}, nil
}

// ResolveAll resolves every entry of raws, keeping input order.
// Entries without "://" are prefixed with defaultScheme when it is set, so a
// plain hostname list can be fed directly. Invalid entries are collected and
// do not affect the others.
func ResolveAll(raws []string, defaultScheme string) ([]models.Target, []InvalidEntry) {
	targets := make([]models.Target, 0, len(raws))
	var invalid []InvalidEntry

	for _, raw := range raws {
		input := strings.TrimSpace(raw)
		if defaultScheme != "" && input != "" && !strings.Contains(input, "://") {
			input = defaultScheme + "://" + input
		}

		t, err := Resolve(input)
		if err != nil {
			invalid = append(invalid, InvalidEntry{Input: raw, Err: err})
			continue
		}
		t.Raw = raw
		targets = append(targets, t)
	}

	return targets, invalid
}
