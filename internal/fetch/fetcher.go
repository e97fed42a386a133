// Package fetch issues raw HEAD requests to targets and fans them out with a
// bounded number of concurrent connections.
package fetch

import (
	"context"
	"crypto/x509"
	"fmt"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/sirupsen/logrus"

	"github.com/hakim/headerstat/internal/logging"
	"github.com/hakim/headerstat/internal/models"
)

// Config holds everything a Fetcher needs. Values come from the caller; the
// package keeps no global settings.
type Config struct {
	// Timeout bounds one fetch end to end: resolve, connect, handshake, write and read.
	Timeout time.Duration
	// MaxHeaderBytes caps the header section; 0 disables the cap.
	MaxHeaderBytes int64
	// SkipStatusLine drops a leading "HTTP/..." line instead of storing it as a header.
	SkipStatusLine bool

	// TLSFingerprint selects the ClientHello: golang, chrome, firefox or safari.
	TLSFingerprint     string
	InsecureSkipVerify bool
	// RootCAs overrides the system pool, mainly for tests.
	RootCAs *x509.CertPool

	// DNSServers, when non-empty, are queried instead of the system resolver.
	DNSServers   []string
	DNSTimeout   time.Duration
	DNSCacheSize int
	DNSTTL       time.Duration
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxHeaderBytes: 64 << 10,
		TLSFingerprint: "golang",
		DNSTimeout:     2 * time.Second,
		DNSCacheSize:   10_000,
		DNSTTL:         5 * time.Minute,
	}
}

// Fetcher fetches the response headers of one target at a time. It is safe
// for concurrent use.
type Fetcher struct {
	cfg      Config
	dialer   connDialer
	resolver *DNSResolver
	log      *logrus.Entry
}

// NewFetcher builds a Fetcher from cfg.
func NewFetcher(cfg Config) (*Fetcher, error) {
	helloID, err := ParseFingerprint(cfg.TLSFingerprint)
	if err != nil {
		return nil, err
	}

	d := &Dialer{
		TLSConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			RootCAs:            cfg.RootCAs,
		},
		HelloID: helloID,
	}
	d.Timeout = cfg.Timeout

	f := &Fetcher{
		cfg:    cfg,
		dialer: d,
		log:    logging.NewCompLogger("fetch"),
	}

	if len(cfg.DNSServers) > 0 {
		r, err := NewDNSResolver(cfg.DNSServers, cfg.DNSTimeout, cfg.DNSCacheSize, cfg.DNSTTL)
		if err != nil {
			return nil, err
		}
		d.Resolver = r
		f.resolver = r
	}

	return f, nil
}

// Close releases the DNS cache, if any
func (f *Fetcher) Close() {
	if f.resolver != nil {
		f.resolver.Close()
	}
}

// Fetch sends a HEAD request to t and returns the parsed response headers.
// Every failure is returned as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, t models.Target) (*models.HeaderMap, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()

	req, err := BuildRequest(t)
	if err != nil {
		return nil, &FetchError{Target: t, Op: "encode", Err: err}
	}

	conn, err := f.dialer.DialTarget(ctx, t)
	if err != nil {
		return nil, &FetchError{Target: t, Op: "connect", Err: err}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, &FetchError{Target: t, Op: "connect", Err: err}
		}
	}
	// Unblock a pending read if the parent context is cancelled early.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(req); err != nil {
		return nil, &FetchError{Target: t, Op: "write", Err: err}
	}

	headers, err := ReadHeaders(conn, f.cfg.MaxHeaderBytes, f.cfg.SkipStatusLine)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return nil, &FetchError{Target: t, Op: "read", Err: err}
	}

	f.log.WithFields(logrus.Fields{
		"target":  t.String(),
		"headers": headers.Len(),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("headers fetched")

	return headers, nil
}
