package models

import (
	"net"
	"strconv"
)

// Target is a resolved connection target derived from one input URL.
// It is immutable once created.
type Target struct {
	Scheme Scheme `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	// Path is the request target sent on the HEAD line, "/" when the URL has none.
	Path string `json:"path"`
	// Raw is the input string the target was resolved from.
	Raw string `json:"raw"`
}

// Address returns the host:port pair to dial
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// String returns a compact URL-like representation for logs and reports
func (t Target) String() string {
	return string(t.Scheme) + "://" + t.Address() + t.Path
}
