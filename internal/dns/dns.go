package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// publicDNS are queried directly when the system resolver cannot answer,
// which happens on locked-down hosts where STUN hostnames are otherwise unresolvable.
var publicDNS = []string{
	"1.1.1.1",                // Cloudflare
	"1.0.0.1",                // Cloudflare
	"[2606:4700:4700::1111]", // Cloudflare
	"8.8.8.8",                // Google
	"8.8.4.4",                // Google
	"[2001:4860:4860::8888]", // Google
	"9.9.9.9",                // Quad9
	"149.112.112.112",        // Quad9
	"208.67.222.222",         // Cisco OpenDNS
	"208.67.220.220",         // Cisco OpenDNS
}

const (
	localTimeout  = 1 * time.Second
	remoteTimeout = 2 * time.Second
)

var ErrNoAddress = errors.New("no addresses found")

// Lookup resolves host to a single IP, preferring IPv4.
// The system resolver is tried first, then the public servers are raced.
func Lookup(host string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()

	if ip, err := resolve(ctx, &net.Resolver{}, host); err == nil {
		return ip, nil
	}
	return race(host, publicDNS)
}

func race(host string, servers []string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	results := make(chan result, len(servers))
	for _, server := range servers {
		go func(server string) {
			ip, err := resolve(ctx, viaServer(server), host)
			results <- result{ip: ip, err: err}
		}(server)
	}

	var lastErr error
	for range servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			lastErr = res.err
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public DNS race timed out", host)
		}
	}
	return "", fmt.Errorf("resolve %s: all %d public servers failed: %w", host, len(servers), lastErr)
}

// viaServer returns a resolver pinned to one DNS server on port 53.
func viaServer(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
}

func resolve(ctx context.Context, r *net.Resolver, host string) (string, error) {
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	return preferIPv4(ips)
}

func preferIPv4(ips []string) (string, error) {
	if len(ips) == 0 {
		return "", ErrNoAddress
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
