package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

type Permission string

const (
	PermissionDefault     Permission = "default"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// Desktop is a system-level alert backend.
type Desktop interface {
	// Permission reports the current decision without prompting.
	Permission() Permission
	// RequestPermission asks for a decision if none has been made yet.
	RequestPermission(ctx context.Context) Permission
	Show(ctx context.Context, n model.ActiveNotification) error
}

// Policy is how a PermissionGate answers a permission request.
type Policy string

const (
	PolicyPrompt  Policy = "prompt"
	PolicyGranted Policy = "granted"
	PolicyDenied  Policy = "denied"
)

// PermissionGate puts a permission decision in front of a backend. Under
// PolicyPrompt the permission stays undecided until the first request, which
// grants it; the decision then sticks for the life of the gate.
type PermissionGate struct {
	Desktop
	policy Policy
	logger *slog.Logger

	mu      sync.Mutex
	decided Permission
}

func NewPermissionGate(d Desktop, policy Policy, logger *slog.Logger) *PermissionGate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &PermissionGate{Desktop: d, policy: policy, logger: logger}
	switch policy {
	case PolicyGranted:
		g.decided = PermissionGranted
	case PolicyDenied:
		g.decided = PermissionDenied
	}
	return g
}

func (g *PermissionGate) Permission() Permission {
	if g.Desktop.Permission() == PermissionUnsupported {
		return PermissionUnsupported
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decided == "" {
		return PermissionDefault
	}
	return g.decided
}

func (g *PermissionGate) RequestPermission(ctx context.Context) Permission {
	if g.Desktop.RequestPermission(ctx) == PermissionUnsupported {
		return PermissionUnsupported
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decided == "" {
		g.decided = PermissionGranted
		g.logger.Info("desktop notification permission granted")
	}
	return g.decided
}

// NotifySendDesktop shows alerts with notify-send. It is unsupported when the
// tool or a display is missing.
type NotifySendDesktop struct {
	title     string
	available bool
}

func NewNotifySendDesktop(title string) *NotifySendDesktop {
	return &NotifySendDesktop{
		title:     title,
		available: toolAvailable("notify-send") && hasDisplay(),
	}
}

// hasDisplay checks if a display environment is available
func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

func (d *NotifySendDesktop) Permission() Permission {
	if !d.available {
		return PermissionUnsupported
	}
	return PermissionGranted
}

func (d *NotifySendDesktop) RequestPermission(context.Context) Permission {
	return d.Permission()
}

func (d *NotifySendDesktop) Show(ctx context.Context, n model.ActiveNotification) error {
	if !d.available {
		return nil
	}
	cmd := exec.CommandContext(ctx, "notify-send", "-u", urgency(n.Severity), "-a", d.title, d.title, n.Message)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send failed: %w: %s", err, out)
	}
	return nil
}

func urgency(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "critical"
	case model.SeverityInfo:
		return "low"
	default:
		return "normal"
	}
}
