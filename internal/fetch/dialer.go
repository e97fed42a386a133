package fetch

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	tls "github.com/refraction-networking/utls"

	"github.com/hakim/headerstat/internal/models"
)

// HostResolver maps a hostname to a single address to dial.
type HostResolver interface {
	LookupIP(ctx context.Context, host string) (net.IP, error)
}

// connDialer opens a ready-to-write connection to a target, TLS included.
type connDialer interface {
	DialTarget(ctx context.Context, t models.Target) (net.Conn, error)
}

// ParseFingerprint maps a configured fingerprint name to a utls ClientHello.
// The empty name selects the stock Go hello.
func ParseFingerprint(name string) (tls.ClientHelloID, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "golang", "go":
		return tls.HelloGolang, nil
	case "chrome":
		return tls.HelloChrome_Auto, nil
	case "firefox":
		return tls.HelloFirefox_Auto, nil
	case "safari":
		return tls.HelloSafari_Auto, nil
	default:
		return tls.ClientHelloID{}, fmt.Errorf("unknown TLS fingerprint %q (valid: golang, chrome, firefox, safari)", name)
	}
}

// Dialer connects to targets. https targets get a TLS handshake on top of the
// TCP connection; http targets are returned plain.
type Dialer struct {
	net.Dialer

	// Resolver, when set, replaces the system resolver for hostnames.
	Resolver HostResolver
	// TLSConfig is cloned per connection; ServerName is set from the target.
	TLSConfig *tls.Config
	HelloID   tls.ClientHelloID
}

// DialTarget dials t, bounded by ctx.
func (d *Dialer) DialTarget(ctx context.Context, t models.Target) (net.Conn, error) {
	addr := t.Address()

	if d.Resolver != nil && net.ParseIP(t.Host) == nil {
		ip, err := d.Resolver.LookupIP(ctx, t.Host)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", t.Host, err)
		}
		addr = net.JoinHostPort(ip.String(), strconv.Itoa(t.Port))
	}

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if !t.Scheme.Secure() {
		return conn, nil
	}

	tlsConn, err := d.handshake(ctx, conn, t.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (d *Dialer) handshake(ctx context.Context, conn net.Conn, host string) (net.Conn, error) {
	var cfg *tls.Config
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	cfg.ServerName = host
	// The request is written as HTTP/1.x text, so h2 must never be negotiated.
	cfg.NextProtos = []string{"http/1.1"}

	var uconn *tls.UConn
	if d.HelloID == tls.HelloGolang || d.HelloID.Client == "" {
		uconn = tls.UClient(conn, cfg, tls.HelloGolang)
	} else {
		spec, err := tls.UTLSIdToSpec(d.HelloID)
		if err != nil {
			return nil, fmt.Errorf("building %s hello: %w", d.HelloID.Str(), err)
		}
		pinHTTP1(&spec)
		uconn = tls.UClient(conn, cfg, tls.HelloCustom)
		if err := uconn.ApplyPreset(&spec); err != nil {
			return nil, fmt.Errorf("applying %s hello: %w", d.HelloID.Str(), err)
		}
	}

	if err := uconn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	return uconn, nil
}

// pinHTTP1 rewrites the ALPN extension of a browser preset to offer only http/1.1
func pinHTTP1(spec *tls.ClientHelloSpec) {
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
}
