package vpn

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrVPNNotConnected = errors.New("VPN not connected")
	ErrVPNConnectFail  = errors.New("failed to connect VPN")
)

const connectWait = 30 * time.Second

type Config struct {
	AutoConnect bool
	Region      string
}

// commandRunner runs expressvpnctl; swapped out in tests.
type commandRunner func(ctx context.Context, args ...string) ([]byte, error)

func runCtl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "expressvpnctl", args...).Output()
}

// ExpressVPN makes sure page loads leave through the configured region.
type ExpressVPN struct {
	cfg  Config
	run  commandRunner
	poll time.Duration
}

func NewExpressVPN(cfg Config) *ExpressVPN {
	return &ExpressVPN{cfg: cfg, run: runCtl, poll: time.Second}
}

func (v *ExpressVPN) IsConnected(ctx context.Context) bool {
	status, err := v.Status(ctx)
	if err != nil {
		return false
	}
	return connected(status)
}

func (v *ExpressVPN) Status(ctx context.Context) (string, error) {
	out, err := v.run(ctx, "status")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (v *ExpressVPN) Connect(ctx context.Context) error {
	if v.IsConnected(ctx) {
		return nil
	}

	if !v.cfg.AutoConnect {
		return ErrVPNNotConnected
	}

	region := v.cfg.Region
	if region == "" {
		region = "smart"
	}

	if _, err := v.run(ctx, "connect", region); err != nil {
		return ErrVPNConnectFail
	}

	deadline := time.Now().Add(connectWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.poll):
		}
		if v.IsConnected(ctx) {
			return nil
		}
	}

	return ErrVPNConnectFail
}

// Egress connects if needed and returns the status line describing the
// current exit, e.g. "Connected to Argentina".
func (v *ExpressVPN) Egress(ctx context.Context) (string, error) {
	if err := v.Connect(ctx); err != nil {
		return "", err
	}
	return v.Status(ctx)
}

func (v *ExpressVPN) Disconnect(ctx context.Context) error {
	_, err := v.run(ctx, "disconnect")
	return err
}

func connected(status string) bool {
	status = strings.ToLower(status)
	return strings.Contains(status, "connected") && !strings.Contains(status, "disconnected") &&
		!strings.Contains(status, "not connected")
}
