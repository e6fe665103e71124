// Package security guards outbound webhook traffic. Subscriber URLs are
// arbitrary external configuration, so every egress connection is checked
// against a private-range IP blocklist to keep the dispatcher from being
// used as a proxy into internal infrastructure (localhost, RFC1918 ranges,
// cloud metadata endpoints).
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// dnsTimeout caps DNS resolution during egress dialing.
const dnsTimeout = 500 * time.Millisecond

// ErrEgressBlocked is returned when a connection targets a blocked IP range.
var ErrEgressBlocked = errors.New("egress: destination in blocked IP range")

// ErrEgressDNS is returned when DNS resolution fails or times out.
var ErrEgressDNS = errors.New("egress: DNS resolution failed")

// ErrEgressRedirects is returned when the redirect limit is exceeded.
var ErrEgressRedirects = errors.New("egress: too many redirects")

// blockedCIDRs are the destination ranges an outbound webhook must never
// reach.
var blockedCIDRs = []string{
	"127.0.0.0/8",    // loopback
	"10.0.0.0/8",     // private class A
	"172.16.0.0/12",  // private class B
	"192.168.0.0/16", // private class C
	"169.254.0.0/16", // link-local, cloud metadata
	"0.0.0.0/8",      // current network
	"224.0.0.0/4",    // multicast
	"240.0.0.0/4",    // reserved
	"100.64.0.0/10",  // carrier-grade NAT
	"198.18.0.0/15",  // benchmarking
	"fc00::/7",       // IPv6 private
	"fe80::/10",      // IPv6 link-local
	"::1/128",        // IPv6 loopback
}

var blockedNets = mustParseCIDRs(blockedCIDRs)

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("egress: invalid blocklist CIDR %q: %v", cidr, err))
		}
		nets = append(nets, ipNet)
	}
	return nets
}

func isBlockedIP(ip net.IP) bool {
	for _, ipNet := range blockedNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS resolution for testability.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// EgressTransport wraps http.Transport with a dial hook that resolves the
// destination host and refuses to connect if any resolved address falls in
// a blocked range. Validating every address, not just the first, closes
// the DNS-rebinding gap where a safe address is mixed with a private one.
type EgressTransport struct {
	base     *http.Transport
	resolver Resolver
}

// NewEgressTransport creates an EgressTransport over base. A nil base gets
// a default http.Transport; a nil resolver falls back to net.DefaultResolver.
func NewEgressTransport(base *http.Transport, resolver Resolver) *EgressTransport {
	if base == nil {
		base = &http.Transport{}
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	et := &EgressTransport{base: base, resolver: resolver}
	base.DialContext = et.dial
	return et
}

// RoundTrip implements http.RoundTripper.
func (et *EgressTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return et.base.RoundTrip(req)
}

func (et *EgressTransport) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("egress: invalid address %q: %w", addr, err)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("%w: %s", ErrEgressBlocked, ip)
		}
		var dialer net.Dialer
		return dialer.DialContext(ctx, network, addr)
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := et.resolver.LookupIPAddr(dnsCtx, host)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("%w: host %q: %v", ErrEgressDNS, host, err)
	}

	for _, ipAddr := range ips {
		if isBlockedIP(ipAddr.IP) {
			return nil, fmt.Errorf("%w: %s (resolved from %s)", ErrEgressBlocked, ipAddr.IP, host)
		}
	}

	var dialer net.Dialer
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

// checkRedirect builds an http.Client redirect policy that enforces the
// redirect limit and re-validates each redirect target against the
// blocklist.
func checkRedirect(maxRedirects int, resolver Resolver) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: limit is %d", ErrEgressRedirects, maxRedirects)
		}

		host := req.URL.Hostname()
		if host == "" {
			return fmt.Errorf("%w: redirect URL has no host", ErrEgressBlocked)
		}

		if ip := net.ParseIP(host); ip != nil {
			if isBlockedIP(ip) {
				return fmt.Errorf("%w: redirect to %s", ErrEgressBlocked, ip)
			}
			return nil
		}

		dnsCtx, cancel := context.WithTimeout(req.Context(), dnsTimeout)
		defer cancel()

		ips, err := resolver.LookupIPAddr(dnsCtx, host)
		if err != nil {
			return fmt.Errorf("%w: redirect host %q: %v", ErrEgressDNS, host, err)
		}
		for _, ipAddr := range ips {
			if isBlockedIP(ipAddr.IP) {
				return fmt.Errorf("%w: redirect to %s (resolved from %s)", ErrEgressBlocked, ipAddr.IP, host)
			}
		}
		return nil
	}
}

// NewEgressClient builds the pooled, concurrency-safe HTTP client used for
// all webhook delivery. The timeout covers the whole request including
// body read; maxRedirects bounds redirect chains, each hop re-validated.
func NewEgressClient(timeout time.Duration, maxRedirects int) *http.Client {
	transport := NewEgressTransport(nil, nil)
	return &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: checkRedirect(maxRedirects, transport.resolver),
	}
}

// ValidateEgressURL checks a subscriber URL at registration time so users
// get early feedback instead of silent delivery failures. The URL must be
// absolute http(s) and, when the host is an IP literal, outside the
// blocked ranges. Hostnames are not resolved here; the dial hook re-checks
// at delivery time anyway.
func ValidateEgressURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("egress: invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("egress: URL scheme must be http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("egress: URL has no host")
	}
	if ip := net.ParseIP(parsed.Hostname()); ip != nil && isBlockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrEgressBlocked, ip)
	}
	return nil
}
