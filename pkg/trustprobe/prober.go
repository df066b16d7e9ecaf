package trustprobe

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/replicore/replicore/pkg/orchestrator"
	"github.com/replicore/replicore/pkg/telemetry"
)

// Status is the outcome of a trust probe.
type Status string

const (
	// StatusTrusted means the handshake completed: the host key matched
	// known_hosts and public key auth succeeded.
	StatusTrusted Status = "trusted"

	// StatusUntrusted means the appliance answered but the handshake was
	// rejected, either an unknown host key or failed auth.
	StatusUntrusted Status = "untrusted"

	// StatusUnreachable means the appliance could not be reached at all.
	StatusUnreachable Status = "unreachable"
)

// Result is the outcome of probing one appliance.
type Result struct {
	// TargetID is the appliance that was probed.
	TargetID string `json:"target_id"`

	// Host is the address that was dialed.
	Host string `json:"host"`

	// Status is the probe outcome.
	Status Status `json:"status"`

	// Latency is how long the handshake took.
	Latency time.Duration `json:"latency"`

	// Message carries the handshake error for non-trusted outcomes.
	Message string `json:"message,omitempty"`
}

// TrustRecorder persists the refreshed trust flag.
type TrustRecorder interface {
	SetTargetTrust(ctx context.Context, id string, established bool) error
}

// Prober performs SSH trust probes against replication appliances.
type Prober struct {
	config  *Config
	store   TrustRecorder
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	// dial is swapped out in tests.
	dial func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}

// NewProber creates a trust prober. store and metrics may be nil.
func NewProber(config *Config, store TrustRecorder, logger zerolog.Logger, metrics *telemetry.Metrics) (*Prober, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Prober{
		config:  config,
		store:   store,
		logger:  logger.With().Str("component", "trustprobe").Logger(),
		metrics: metrics,
		dial:    ssh.Dial,
	}, nil
}

// Probe performs a handshake against the target's appliance and records
// the outcome. The returned error covers probe setup only; handshake
// failures are reported through the result status.
func (p *Prober) Probe(ctx context.Context, target *orchestrator.ReplicationTarget) (*Result, error) {
	clientConfig, err := p.config.BuildSSHClientConfig()
	if err != nil {
		return nil, err
	}

	address := p.config.Address(target.Hostname)
	result := &Result{
		TargetID: target.ID,
		Host:     address,
	}

	start := time.Now()
	client, dialErr := p.dialWithContext(ctx, address, clientConfig)
	result.Latency = time.Since(start)

	switch {
	case dialErr == nil:
		if client != nil {
			_ = client.Close()
		}
		result.Status = StatusTrusted
	default:
		result.Status = classifyError(dialErr)
		result.Message = dialErr.Error()
	}

	p.logger.Info().
		Str("target_id", target.ID).
		Str("host", address).
		Str("status", string(result.Status)).
		Dur("latency", result.Latency).
		Msg("Trust probe completed")

	if p.metrics != nil {
		p.metrics.RecordTrustProbe(string(result.Status))
	}

	if p.store != nil {
		if err := p.store.SetTargetTrust(ctx, target.ID, result.Status == StatusTrusted); err != nil {
			p.logger.Error().Err(err).
				Str("target_id", target.ID).
				Msg("Failed to persist trust flag")
		}
	}

	return result, nil
}

// dialWithContext runs the blocking handshake in a goroutine so the probe
// honors ctx cancellation.
func (p *Prober) dialWithContext(ctx context.Context, address string, config *ssh.ClientConfig) (*ssh.Client, error) {
	type dialResult struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialResult, 1)

	go func() {
		client, err := p.dial("tcp", address, config)
		ch <- dialResult{client: client, err: err}
	}()

	select {
	case <-ctx.Done():
		// The late dial result closes itself when it lands.
		go func() {
			if r := <-ch; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		return r.client, r.err
	}
}

// classifyError splits handshake failures into unreachable (the network
// said no) and untrusted (the appliance said no).
func classifyError(err error) Status {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return StatusUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusUnreachable
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return StatusUnreachable
	}
	return StatusUntrusted
}
