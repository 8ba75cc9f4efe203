// Package connectivity answers "is the device on the network right now".
package connectivity

import (
	"context"
	"net"
	"strconv"
	"time"

	"doorman/internal/logger"
)

// Defaults target a public DNS resolver that is always up.
const (
	DefaultHost    = "8.8.8.8"
	DefaultPort    = 53
	DefaultTimeout = 1 * time.Second
)

// Prober is the one-shot reachability check used to gate uploads.
type Prober interface {
	IsOnline(ctx context.Context) bool
}

// Probe dials a single TCP connection per call. It never retries; callers
// own the retry policy.
type Probe struct {
	host    string
	port    int
	timeout time.Duration
	log     *logger.Logger

	dialer func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewProbe returns a probe with the given target; zero values fall back to defaults.
func NewProbe(host string, port int, timeout time.Duration, log *logger.Logger) *Probe {
	if host == "" {
		host = DefaultHost
	}
	if port <= 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &net.Dialer{}
	return &Probe{
		host:    host,
		port:    port,
		timeout: timeout,
		log:     log,
		dialer:  d.DialContext,
	}
}

// Addr is the dialed host:port.
func (p *Probe) Addr() string {
	return net.JoinHostPort(p.host, strconv.Itoa(p.port))
}

// IsOnline reports whether a TCP connection to the target succeeds within the timeout.
func (p *Probe) IsOnline(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer(ctx, "tcp", p.Addr())
	if err != nil {
		p.log.Warnw("connectivity_probe_failed", "addr", p.Addr(), "err", err)
		return false
	}
	_ = conn.Close()
	return true
}

// IsOnline is the one-call form of Probe.IsOnline.
func IsOnline(ctx context.Context, host string, port int, timeout time.Duration) bool {
	return NewProbe(host, port, timeout, nil).IsOnline(ctx)
}
