package api

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver picks the address used for rate limiting and session
// metadata. Forwarding headers count only when the peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver accepts CIDRs or bare addresses.
func NewClientIPResolver(trustedProxyCIDRs []string) (*ClientIPResolver, error) {
	resolver := &ClientIPResolver{}

	for _, raw := range trustedProxyCIDRs {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		if addr, err := netip.ParseAddr(value); err == nil {
			addr = addr.Unmap()
			resolver.trusted = append(resolver.trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %q: %w", value, err)
		}
		resolver.trusted = append(resolver.trusted, prefix.Masked())
	}

	return resolver, nil
}

func (r *ClientIPResolver) Resolve(req *http.Request) string {
	peer, ok := addrFromHostPort(req.RemoteAddr)
	if !ok {
		return "unknown"
	}

	if r.trustsProxy(peer) {
		for part := range strings.SplitSeq(req.Header.Get("X-Forwarded-For"), ",") {
			if addr, ok := parseAddr(part); ok {
				return addr.String()
			}
		}
		if addr, ok := parseAddr(req.Header.Get("X-Real-IP")); ok {
			return addr.String()
		}
	}

	return peer.String()
}

func (r *ClientIPResolver) trustsProxy(addr netip.Addr) bool {
	for _, prefix := range r.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func addrFromHostPort(value string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(value); err == nil {
		return parseAddr(host)
	}
	return parseAddr(value)
}

// parseAddr accepts a bare or quoted address, optionally with a port.
func parseAddr(value string) (netip.Addr, bool) {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" {
		return netip.Addr{}, false
	}

	if addr, err := netip.ParseAddr(strings.Trim(value, "[]")); err == nil {
		return addr.Unmap(), true
	}
	if addrPort, err := netip.ParseAddrPort(value); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	return netip.Addr{}, false
}
