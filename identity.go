package davgate

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIdentity is used when no client identity can be derived.
const UnknownIdentity = "unknown"

// IdentityPolicy derives the client identity the Attempt Ledger keys on.
//
// Proxy headers are spoofable by anyone who can reach the gateway directly,
// so which header to trust depends on the deployment and is configured here.
type IdentityPolicy struct {
	// TrustedHeader names the proxy header carrying the client address, for
	// example "X-Forwarded-For" or "CF-Connecting-IP". Empty means the peer
	// address of the connection is used.
	TrustedHeader string
}

// Identify returns the client identity for a request with headers h arriving
// from remoteAddr.
func (p IdentityPolicy) Identify(h http.Header, remoteAddr string) string {
	if p.TrustedHeader != "" {
		v := h.Get(p.TrustedHeader)
		if v == "" {
			return UnknownIdentity
		}
		// X-Forwarded-For style lists put the original client first.
		first, _, _ := strings.Cut(v, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
		return UnknownIdentity
	}

	if remoteAddr == "" {
		return UnknownIdentity
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
