// Package service inspects and restarts the systemd units the panel runs on.
package service

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pandeptwidyaop/panelctl/internal/runner"
)

// ErrUnsupported is returned when systemd is not available on this host.
var ErrUnsupported = errors.New("systemd not available on this system")

// ServiceStatus represents the status of one systemd unit.
type ServiceStatus struct {
	Name        string `json:"name"`
	IsRunning   bool   `json:"is_running"`
	IsEnabled   bool   `json:"is_enabled"`
	ActiveState string `json:"active_state"`
	SubState    string `json:"sub_state"`
}

// Manager controls a fixed set of units through systemctl.
type Manager struct {
	run       runner.Runner
	names     []string
	available func() bool
}

// NewManager returns a Manager for the given unit names.
func NewManager(run runner.Runner, names []string) *Manager {
	return &Manager{run: run, names: names, available: IsSystemdAvailable}
}

// Names returns the managed unit names.
func (m *Manager) Names() []string {
	return m.names
}

// IsSystemdAvailable checks if systemctl command is available.
func IsSystemdAvailable() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// Status returns the state of one unit. A unit systemd does not know about
// reports ActiveState "inactive" or "unknown" rather than an error.
func (m *Manager) Status(ctx context.Context, name string) (*ServiceStatus, error) {
	if !m.available() {
		return nil, ErrUnsupported
	}

	status := &ServiceStatus{Name: name}

	if v, err := m.property(ctx, name, "ActiveState"); err == nil {
		status.ActiveState = v
		status.IsRunning = v == "active"
	}
	if v, err := m.property(ctx, name, "SubState"); err == nil {
		status.SubState = v
	}

	// is-enabled exits non-zero for disabled units; the output still says why.
	res, _ := m.run.Run(ctx, runner.Command{Name: "systemctl", Args: []string{"is-enabled", name}})
	if res != nil {
		status.IsEnabled = strings.TrimSpace(res.Output) == "enabled"
	}

	if status.ActiveState == "" {
		status.ActiveState = "unknown"
	}
	return status, nil
}

// StatusAll returns the state of every managed unit.
func (m *Manager) StatusAll(ctx context.Context) ([]*ServiceStatus, error) {
	out := make([]*ServiceStatus, 0, len(m.names))
	for _, name := range m.names {
		st, err := m.Status(ctx, name)
		if err != nil {
			return out, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Restart restarts one unit.
func (m *Manager) Restart(ctx context.Context, name string) error {
	return m.systemctl(ctx, "restart", name)
}

// Start starts one unit.
func (m *Manager) Start(ctx context.Context, name string) error {
	return m.systemctl(ctx, "start", name)
}

// Stop stops one unit.
func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.systemctl(ctx, "stop", name)
}

// RestartAll restarts every managed unit in order, continuing past
// failures. The returned error joins every failure.
func (m *Manager) RestartAll(ctx context.Context) error {
	var errs []error
	for _, name := range m.names {
		if err := m.Restart(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) systemctl(ctx context.Context, action, name string) error {
	if !m.available() {
		return ErrUnsupported
	}
	res, err := m.run.Run(ctx, runner.Command{Name: "systemctl", Args: []string{action, name}})
	if err != nil {
		detail := ""
		if res != nil {
			detail = strings.TrimSpace(res.Output)
		}
		if detail != "" {
			return fmt.Errorf("failed to %s %s: %w: %s", action, name, err, detail)
		}
		return fmt.Errorf("failed to %s %s: %w", action, name, err)
	}
	return nil
}

func (m *Manager) property(ctx context.Context, name, property string) (string, error) {
	res, err := m.run.Run(ctx, runner.Command{
		Name: "systemctl",
		Args: []string{"show", name, "--property=" + property, "--value"},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Output), nil
}
