package models

// RunStatus represents the current state of an analysis run
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusComplete RunStatus = "complete"
	StatusFailed   RunStatus = "failed"
)

// Scheme is the URL scheme of a fetch target
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// Default ports per scheme
const (
	HTTPPort  = 80
	HTTPSPort = 443
)

// DefaultPort returns the conventional port for the scheme, or 0 if unknown
func (s Scheme) DefaultPort() int {
	switch s {
	case SchemeHTTP:
		return HTTPPort
	case SchemeHTTPS:
		return HTTPSPort
	default:
		return 0
	}
}

// Secure reports whether the scheme requires a TLS connection
func (s Scheme) Secure() bool {
	return s == SchemeHTTPS
}
