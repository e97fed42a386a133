package fetch

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// fakeExchanger answers from a per-server table keyed by question type.
type fakeExchanger struct {
	mu      sync.Mutex
	answers map[string]map[uint16]string // server -> qtype -> ip
	fail    map[string]bool
	calls   map[string]int
}

func (f *fakeExchanger) ExchangeContext(_ context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[address]++

	if f.fail[address] {
		return nil, 0, errors.New("i/o timeout")
	}

	q := m.Question[0]
	resp := new(dns.Msg)
	resp.SetReply(m)

	ip, ok := f.answers[address][q.Qtype]
	if !ok {
		return resp, 0, nil
	}
	hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 60}
	switch q.Qtype {
	case dns.TypeA:
		resp.Answer = append(resp.Answer, &dns.A{Hdr: hdr, A: net.ParseIP(ip)})
	case dns.TypeAAAA:
		resp.Answer = append(resp.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.ParseIP(ip)})
	}
	return resp, 0, nil
}

func newTestResolver(t *testing.T, servers []string, ex *fakeExchanger) *DNSResolver {
	t.Helper()
	r, err := NewDNSResolver(servers, time.Second, 16, time.Minute)
	if err != nil {
		t.Fatalf("NewDNSResolver: %v", err)
	}
	r.client = ex
	t.Cleanup(r.Close)
	return r
}

func TestDNSResolverPrefersIPv4(t *testing.T) {
	ex := &fakeExchanger{answers: map[string]map[uint16]string{
		"10.0.0.1:53": {dns.TypeA: "192.0.2.10", dns.TypeAAAA: "2001:db8::10"},
	}}
	r := newTestResolver(t, []string{"10.0.0.1"}, ex)

	ip, err := r.LookupIP(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("LookupIP() error = %v", err)
	}
	if !ip.Equal(net.ParseIP("192.0.2.10")) {
		t.Errorf("expected IPv4 answer, got %s", ip)
	}
}

func TestDNSResolverIPv6Only(t *testing.T) {
	ex := &fakeExchanger{answers: map[string]map[uint16]string{
		"10.0.0.1:53": {dns.TypeAAAA: "2001:db8::20"},
	}}
	r := newTestResolver(t, []string{"10.0.0.1:53"}, ex)

	ip, err := r.LookupIP(context.Background(), "v6.example.com")
	if err != nil {
		t.Fatalf("LookupIP() error = %v", err)
	}
	if !ip.Equal(net.ParseIP("2001:db8::20")) {
		t.Errorf("expected IPv6 answer, got %s", ip)
	}
}

func TestDNSResolverCachesAnswers(t *testing.T) {
	ex := &fakeExchanger{answers: map[string]map[uint16]string{
		"10.0.0.1:53": {dns.TypeA: "192.0.2.30"},
	}}
	r := newTestResolver(t, []string{"10.0.0.1"}, ex)

	for i := 0; i < 3; i++ {
		if _, err := r.LookupIP(context.Background(), "cached.example.com"); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}
	// One A and one AAAA query for the first lookup only.
	if got := r.Lookups(); got != 2 {
		t.Errorf("expected 2 DNS queries, got %d", got)
	}
}

func TestDNSResolverFallsBackToNextServer(t *testing.T) {
	ex := &fakeExchanger{
		answers: map[string]map[uint16]string{
			"10.0.0.2:53": {dns.TypeA: "192.0.2.40"},
		},
		fail: map[string]bool{"10.0.0.1:53": true},
	}
	r := newTestResolver(t, []string{"10.0.0.1", "10.0.0.2"}, ex)

	ip, err := r.LookupIP(context.Background(), "fallback.example.com")
	if err != nil {
		t.Fatalf("LookupIP() error = %v", err)
	}
	if !ip.Equal(net.ParseIP("192.0.2.40")) {
		t.Errorf("expected answer from second server, got %s", ip)
	}
}

func TestDNSResolverNoRecords(t *testing.T) {
	ex := &fakeExchanger{answers: map[string]map[uint16]string{}}
	r := newTestResolver(t, []string{"10.0.0.1"}, ex)

	if _, err := r.LookupIP(context.Background(), "nx.example.com"); err == nil {
		t.Fatal("expected an error when no server returns an address")
	}
}

func TestNewDNSResolverRequiresServers(t *testing.T) {
	if _, err := NewDNSResolver(nil, time.Second, 16, time.Minute); err == nil {
		t.Fatal("expected error without servers")
	}
}
