package davgate_test

import (
	"net/http"
	"testing"

	"github.com/sagarc03/davgate"
	"github.com/stretchr/testify/assert"
)

func TestIdentityPolicy_Identify(t *testing.T) {
	tests := []struct {
		name       string
		policy     davgate.IdentityPolicy
		header     http.Header
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded for first hop",
			policy:     davgate.IdentityPolicy{TrustedHeader: "X-Forwarded-For"},
			header:     http.Header{"X-Forwarded-For": {"203.0.113.7, 10.0.0.1"}},
			remoteAddr: "10.0.0.1:5555",
			want:       "203.0.113.7",
		},
		{
			name:       "custom header",
			policy:     davgate.IdentityPolicy{TrustedHeader: "CF-Connecting-IP"},
			header:     http.Header{"Cf-Connecting-Ip": {"198.51.100.2"}},
			remoteAddr: "10.0.0.1:5555",
			want:       "198.51.100.2",
		},
		{
			name:       "trusted header absent",
			policy:     davgate.IdentityPolicy{TrustedHeader: "X-Forwarded-For"},
			header:     http.Header{},
			remoteAddr: "10.0.0.1:5555",
			want:       davgate.UnknownIdentity,
		},
		{
			name:       "trusted header blank first element",
			policy:     davgate.IdentityPolicy{TrustedHeader: "X-Forwarded-For"},
			header:     http.Header{"X-Forwarded-For": {" , 10.0.0.1"}},
			remoteAddr: "10.0.0.1:5555",
			want:       davgate.UnknownIdentity,
		},
		{
			name:       "peer address",
			policy:     davgate.IdentityPolicy{},
			header:     http.Header{"X-Forwarded-For": {"spoofed"}},
			remoteAddr: "192.0.2.9:4444",
			want:       "192.0.2.9",
		},
		{
			name:       "peer ipv6",
			policy:     davgate.IdentityPolicy{},
			header:     http.Header{},
			remoteAddr: "[2001:db8::1]:4444",
			want:       "2001:db8::1",
		},
		{
			name:   "no peer",
			policy: davgate.IdentityPolicy{},
			header: http.Header{},
			want:   davgate.UnknownIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Identify(tt.header, tt.remoteAddr))
		})
	}
}
