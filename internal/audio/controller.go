package audio

import (
	"context"
	"log/slog"

	"github.com/rbright/autostart/internal/action"
)

// VolumeTarget selects either one endpoint or the default endpoint of a flow.
type VolumeTarget struct {
	DeviceID string
	Flow     Flow
}

// Controller applies policy and volume changes. Every operation swallows its
// own failure and reports it on the logger; the boolean results say whether
// the OS accepted the change.
type Controller struct {
	backend Backend
	policy  PolicyClient
	logger  *slog.Logger
}

// NewController wraps backend and an already constructed policy client.
// policy may be nil when only volume operations are needed.
func NewController(backend Backend, policy PolicyClient, logger *slog.Logger) *Controller {
	return &Controller{backend: backend, policy: policy, logger: logger}
}

// SetDefault makes deviceID the default endpoint for every role. Roles are
// attempted independently; it reports true when all three succeeded.
func (c *Controller) SetDefault(ctx context.Context, deviceID string) bool {
	if c.policy == nil {
		c.warn("set default endpoint skipped: no policy client", "device", deviceID)
		return false
	}
	ok := true
	for _, role := range Roles {
		if err := c.policy.SetDefaultEndpoint(ctx, deviceID, role); err != nil {
			c.warn("set default endpoint failed", "device", deviceID, "role", role.String(), "error", err.Error())
			ok = false
		}
	}
	return ok
}

// SetVisibility enables or disables deviceID in the OS audio stack.
func (c *Controller) SetVisibility(ctx context.Context, deviceID string, enabled bool) bool {
	if c.policy == nil {
		c.warn("set endpoint visibility skipped: no policy client", "device", deviceID)
		return false
	}
	if err := c.policy.SetEndpointVisibility(ctx, deviceID, enabled); err != nil {
		c.warn("set endpoint visibility failed", "device", deviceID, "enabled", enabled, "error", err.Error())
		return false
	}
	return true
}

// SetVolume clamps percent to [0,100] and applies it as a linear scalar.
func (c *Controller) SetVolume(ctx context.Context, target VolumeTarget, percent int) bool {
	scalar := float32(action.ClampPercent(percent)) / 100

	var err error
	if target.DeviceID != "" {
		err = c.backend.SetDeviceVolume(ctx, target.DeviceID, scalar)
	} else {
		err = c.backend.SetDefaultVolume(ctx, target.Flow, scalar)
	}
	if err != nil {
		c.warn("set volume failed",
			"device", target.DeviceID,
			"flow", target.Flow.String(),
			"percent", percent,
			"error", err.Error(),
		)
		return false
	}
	return true
}

func (c *Controller) warn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}
