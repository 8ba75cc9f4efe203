package connectivity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"doorman/internal/logger"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const defaultGateDelay = 2 * time.Second

const (
	noticeOffline = "You are not connected to the Internet"
	noticeHowTo   = "Please use the WiFi utility to connect the device to the Internet"
	noticePrompt  = "Press Enter when you have connected"
)

// Gate blocks startup until the prober reports the device online.
type Gate struct {
	prober Prober
	delay  time.Duration
	log    *logger.Logger
	notice io.Writer
	prompt *bufio.Reader
}

// GateOption customizes a Gate.
type GateOption func(*Gate)

// WithNotice writes the operator notice to w on every failed attempt.
func WithNotice(w io.Writer) GateOption {
	return func(g *Gate) { g.notice = w }
}

// WithPrompt makes each failed attempt wait for a line on r before re-polling,
// the way an operator at the console confirms they fixed the network. A
// *bufio.Reader is used as is, so input typed ahead stays with its owner.
func WithPrompt(r io.Reader) GateOption {
	return func(g *Gate) {
		switch br := r.(type) {
		case nil:
		case *bufio.Reader:
			g.prompt = br
		default:
			g.prompt = bufio.NewReader(r)
		}
	}
}

// NewGate builds a gate polling prober every delay.
func NewGate(prober Prober, delay time.Duration, log *logger.Logger, opts ...GateOption) *Gate {
	if delay <= 0 {
		delay = defaultGateDelay
	}
	if log == nil {
		log = logger.Nop()
	}
	g := &Gate{prober: prober, delay: delay, log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Wait re-polls until online or ctx is done. It returns ctx.Err() when
// cancelled before the device came online.
func (g *Gate) Wait(ctx context.Context) error {
	policy := retrypolicy.NewBuilder[bool]().
		HandleResult(false).
		WithMaxRetries(-1).
		WithDelay(g.delay).
		OnRetry(func(e failsafe.ExecutionEvent[bool]) {
			g.log.Infow("connectivity_gate_retry", "attempt", e.Attempts())
		}).
		Build()

	_, err := failsafe.With[bool](policy).WithContext(ctx).Get(func() (bool, error) {
		if g.prober.IsOnline(ctx) {
			g.log.Infow("connectivity_gate_online")
			return true, nil
		}
		g.notifyOffline()
		return false, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("wait for connectivity: %w", err)
	}
	return nil
}

func (g *Gate) notifyOffline() {
	g.log.Warnw("connectivity_gate_offline")
	if g.notice != nil {
		_, _ = fmt.Fprintln(g.notice, noticeOffline)
		_, _ = fmt.Fprintln(g.notice, noticeHowTo)
	}
	if g.prompt != nil {
		if g.notice != nil {
			_, _ = fmt.Fprintln(g.notice, noticePrompt)
		}
		_, _ = g.prompt.ReadString('\n')
	}
}
