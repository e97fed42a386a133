package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"
	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// dnsExchanger is the subset of *dns.Client used by DNSResolver
type dnsExchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (r *dns.Msg, rtt time.Duration, err error)
}

// DNSResolver resolves hostnames against explicit DNS servers and caches
// answers for a fixed TTL. IPv4 answers are preferred over IPv6.
type DNSResolver struct {
	servers []string
	client  dnsExchanger
	cache   otter.Cache[string, net.IP]
	rrIndex atomic.Uint32
	lookups atomic.Int64
}

// NewDNSResolver builds a resolver for servers ("1.1.1.1" or "1.1.1.1:53").
func NewDNSResolver(servers []string, timeout time.Duration, cacheSize int, ttl time.Duration) (*DNSResolver, error) {
	if len(servers) == 0 {
		return nil, errors.New("no DNS servers configured")
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}

	cache, err := otter.MustBuilder[string, net.IP](cacheSize).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building DNS cache: %w", err)
	}

	return &DNSResolver{
		servers: normalized,
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		cache:   cache,
	}, nil
}

// LookupIP returns one address for host, trying servers round-robin until one answers.
func (r *DNSResolver) LookupIP(ctx context.Context, host string) (net.IP, error) {
	if ip, ok := r.cache.Get(host); ok {
		return ip, nil
	}

	start := int(r.rrIndex.Add(1)-1) % len(r.servers)
	var errs []error
	for i := range r.servers {
		server := r.servers[(start+i)%len(r.servers)]

		ip, err := r.lookupServer(ctx, host, server)
		if err == nil {
			r.cache.Set(host, ip)
			return ip, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", server, err))

		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

// lookupServer queries A and AAAA in parallel against one server
func (r *DNSResolver) lookupServer(ctx context.Context, host, server string) (net.IP, error) {
	var (
		g    errgroup.Group
		ipv4 net.IP
		ipv6 net.IP
	)
	g.Go(func() error {
		ip, err := r.query(ctx, host, dns.TypeA, server)
		ipv4 = ip
		return err
	})
	g.Go(func() error {
		ip, err := r.query(ctx, host, dns.TypeAAAA, server)
		ipv6 = ip
		return err
	})
	err := g.Wait()

	if ipv4 != nil {
		return ipv4, nil
	}
	if ipv6 != nil {
		return ipv6, nil
	}
	if err == nil {
		err = fmt.Errorf("no address records for %s", host)
	}
	return nil, err
}

func (r *DNSResolver) query(ctx context.Context, host string, qtype uint16, server string) (net.IP, error) {
	r.lookups.Add(1)

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)

	resp, _, err := r.client.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s lookup returned %s", dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}

	for _, answer := range resp.Answer {
		switch rr := answer.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				return rr.A, nil
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				return rr.AAAA, nil
			}
		}
	}
	return nil, nil
}

// Lookups returns the number of DNS queries sent so far
func (r *DNSResolver) Lookups() int64 {
	return r.lookups.Load()
}

// Close stops the cache's background goroutines
func (r *DNSResolver) Close() {
	r.cache.Close()
}
