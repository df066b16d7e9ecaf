package trustprobe

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/replicore/replicore/pkg/orchestrator"
)

// writeTestKey writes a valid private key and an empty known_hosts file.
func writeTestKey(t *testing.T) (keyPath, knownHostsPath string) {
	t.Helper()
	dir := t.TempDir()

	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	pemBlock, err := ssh.MarshalPrivateKey(privKey, "")
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}

	keyPath = filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(pemBlock), 0o600); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}

	knownHostsPath = filepath.Join(dir, "known_hosts")
	if err := os.WriteFile(knownHostsPath, nil, 0o600); err != nil {
		t.Fatalf("failed to write known_hosts: %v", err)
	}
	return keyPath, knownHostsPath
}

type fakeRecorder struct {
	targetID    string
	established bool
	calls       int
	err         error
}

func (f *fakeRecorder) SetTargetTrust(_ context.Context, id string, established bool) error {
	f.targetID = id
	f.established = established
	f.calls++
	return f.err
}

func newTestProber(t *testing.T, store TrustRecorder, dial func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)) *Prober {
	t.Helper()
	keyPath, knownHostsPath := writeTestKey(t)

	cfg := DefaultConfig("replicator")
	cfg.PrivateKeyPath = keyPath
	cfg.KnownHostsPath = knownHostsPath
	cfg.Timeout = time.Second

	p, err := NewProber(cfg, store, zerolog.New(nil).Level(zerolog.Disabled), nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	if dial != nil {
		p.dial = dial
	}
	return p
}

func testTarget() *orchestrator.ReplicationTarget {
	return &orchestrator.ReplicationTarget{
		ID:       "tgt-dr",
		Hostname: "zfs-dr.example.com",
	}
}

func TestProbeTrusted(t *testing.T) {
	store := &fakeRecorder{}
	p := newTestProber(t, store, func(_, _ string, _ *ssh.ClientConfig) (*ssh.Client, error) {
		return nil, nil
	})

	result, err := p.Probe(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.Status != StatusTrusted {
		t.Errorf("status = %s", result.Status)
	}
	if result.TargetID != "tgt-dr" || result.Host != "zfs-dr.example.com:22" {
		t.Errorf("result = %+v", result)
	}
	if store.calls != 1 || !store.established || store.targetID != "tgt-dr" {
		t.Errorf("recorder = %+v", store)
	}
}

func TestProbeUntrusted(t *testing.T) {
	store := &fakeRecorder{}
	p := newTestProber(t, store, func(_, _ string, _ *ssh.ClientConfig) (*ssh.Client, error) {
		return nil, errors.New("ssh: handshake failed: knownhosts: key is unknown")
	})

	result, err := p.Probe(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.Status != StatusUntrusted {
		t.Errorf("status = %s", result.Status)
	}
	if result.Message == "" {
		t.Error("handshake error not surfaced")
	}
	if store.established {
		t.Error("failed handshake recorded as trusted")
	}
}

func TestProbeUnreachable(t *testing.T) {
	store := &fakeRecorder{}
	p := newTestProber(t, store, func(_, _ string, _ *ssh.ClientConfig) (*ssh.Client, error) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	})

	result, err := p.Probe(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.Status != StatusUnreachable {
		t.Errorf("status = %s", result.Status)
	}
}

func TestProbeHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := newTestProber(t, nil, func(_, _ string, _ *ssh.ClientConfig) (*ssh.Client, error) {
		<-block
		return nil, errors.New("late")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Probe(ctx, testTarget())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.Status != StatusUnreachable {
		t.Errorf("status = %s", result.Status)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{
			name: "network error",
			err:  &net.OpError{Op: "dial", Err: errors.New("no route to host")},
			want: StatusUnreachable,
		},
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: StatusUnreachable,
		},
		{
			name: "auth rejection",
			err:  errors.New("ssh: handshake failed: ssh: unable to authenticate"),
			want: StatusUntrusted,
		},
		{
			name: "host key mismatch",
			err:  errors.New("ssh: handshake failed: knownhosts: key mismatch"),
			want: StatusUntrusted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	keyPath, _ := writeTestKey(t)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing user",
			mutate:  func(c *Config) { c.User = "" },
			wantErr: true,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing key file",
			mutate:  func(c *Config) { c.PrivateKeyPath = "/nonexistent/key" },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("replicator")
			cfg.PrivateKeyPath = keyPath
			cfg.Timeout = time.Second
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
