// Package network builds the transports used to reach the companion service.
package network

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/proxy"

	"vaaniagent/internal/config"
)

// NewSOCKS5Dialer creates a SOCKS5 proxy dialer.
func NewSOCKS5Dialer(host string, port int) (proxy.Dialer, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
	}
	return dialer, nil
}

// NewTransport returns an HTTP transport that dials through the configured
// SOCKS5 proxy, or a plain clone of the default transport when none is set.
func NewTransport(socks config.SOCKSConfig) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !socks.Enabled() {
		return transport, nil
	}

	dialer, err := NewSOCKS5Dialer(socks.Host, socks.Port)
	if err != nil {
		return nil, err
	}

	// Proxies from proxy.SOCKS5 implement ContextDialer; fall back to Dial otherwise.
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}
