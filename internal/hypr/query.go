package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/autostart/internal/window"
)

// Client is the subset of `hyprctl clients -j` the surface needs.
type Client struct {
	Address   string `json:"address"`
	Mapped    bool   `json:"mapped"`
	Hidden    bool   `json:"hidden"`
	Floating  bool   `json:"floating"`
	Class     string `json:"class"`
	Title     string `json:"title"`
	PID       int    `json:"pid"`
	Workspace struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"workspace"`
}

// Handle parses the hex client address.
func (c Client) Handle() (window.Handle, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(c.Address), "0x")
	value, err := strconv.ParseUint(raw, 16, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid client address %q", c.Address)
	}
	return window.Handle(value), nil
}

func (c Client) visible() bool {
	return c.Mapped && !c.Hidden
}

func (c Client) minimized() bool {
	return strings.TrimSpace(c.Workspace.Name) == MinimizedWorkspace
}

// QueryClients fetches every client window.
func QueryClients(ctx context.Context) ([]Client, error) {
	output, err := runHyprctlJSON(ctx, "clients")
	if err != nil {
		return nil, err
	}
	var clients []Client
	if err := json.Unmarshal(output, &clients); err != nil {
		return nil, fmt.Errorf("decode hyprctl clients json: %w", err)
	}
	return clients, nil
}

func addressArg(h window.Handle) string {
	return fmt.Sprintf("address:0x%x", uint64(h))
}

var _ window.Surface = Surface{}

// Surface adapts Hyprland clients to the window minimizers. Minimizing
// moves a client to MinimizedWorkspace without following it.
type Surface struct{}

func (Surface) VisibleWindows(ctx context.Context) ([]window.Handle, error) {
	clients, err := QueryClients(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]window.Handle, 0, len(clients))
	for _, c := range clients {
		if !c.visible() {
			continue
		}
		if h, err := c.Handle(); err == nil {
			handles = append(handles, h)
		}
	}
	return handles, nil
}

func (Surface) MainWindow(ctx context.Context, pid int) (window.Handle, error) {
	clients, err := QueryClients(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range clients {
		if c.PID != pid || !c.visible() {
			continue
		}
		return c.Handle()
	}
	return 0, nil
}

func (Surface) find(ctx context.Context, h window.Handle) (Client, []Client, bool) {
	clients, err := QueryClients(ctx)
	if err != nil {
		return Client{}, nil, false
	}
	for _, c := range clients {
		if ch, err := c.Handle(); err == nil && ch == h {
			return c, clients, true
		}
	}
	return Client{}, clients, false
}

// owner guesses the parent of a dialog. Hyprland does not expose the xdg
// parent, so a floating client is taken to be owned by a tiled client of the
// same process.
func owner(c Client, clients []Client) window.Handle {
	if !c.Floating {
		return 0
	}
	for _, other := range clients {
		if other.PID != c.PID || other.Floating || !other.visible() || other.Address == c.Address {
			continue
		}
		if h, err := other.Handle(); err == nil {
			return h
		}
	}
	return 0
}

// Inspect reports every mapped client as minimizable; Wayland has no
// minimize box and popups are not clients.
func (s Surface) Inspect(ctx context.Context, h window.Handle) (window.Info, error) {
	c, clients, ok := s.find(ctx, h)
	if !ok {
		return window.Info{}, fmt.Errorf("client %s not found", addressArg(h))
	}
	return window.Info{
		Class:       strings.TrimSpace(c.Class),
		Visible:     c.visible(),
		MinimizeBox: true,
		Owner:       owner(c, clients),
	}, nil
}

func (s Surface) Exists(ctx context.Context, h window.Handle) bool {
	_, _, ok := s.find(ctx, h)
	return ok
}

func (s Surface) Iconic(ctx context.Context, h window.Handle) bool {
	c, _, ok := s.find(ctx, h)
	return ok && c.minimized()
}

func (Surface) Minimize(ctx context.Context, h window.Handle) error {
	return dispatch(ctx, "movetoworkspacesilent", MinimizedWorkspace+","+addressArg(h))
}

// PostMinimize is a no-op: Wayland clients cannot be asked to minimize.
func (Surface) PostMinimize(context.Context, window.Handle) error {
	return nil
}

// Responsive treats a client that still exists as responsive; the compositor
// moves windows without the client's cooperation.
func (s Surface) Responsive(ctx context.Context, h window.Handle, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Exists(probeCtx, h)
}
