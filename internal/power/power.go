// Package power lists and activates OS power plans.
package power

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrPlanNotFound is returned when no plan matches an identifier.
var ErrPlanNotFound = errors.New("power plan not found")

// Well-known Windows scheme GUIDs. Linux power profiles reuse them so a
// profile file works on both.
var (
	PlanPowerSaver      = uuid.MustParse("a1841308-3541-4fab-bc81-f71556f20b4a")
	PlanBalanced        = uuid.MustParse("381b4222-f694-41f0-9685-ff5bb260df2e")
	PlanHighPerformance = uuid.MustParse("8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c")
)

// Plan is one selectable power scheme.
type Plan struct {
	ID     uuid.UUID
	Name   string
	Active bool
}

// Switcher enumerates and activates power plans.
type Switcher interface {
	Plans(ctx context.Context) ([]Plan, error)
	Activate(ctx context.Context, id uuid.UUID) error
}

// Find returns the plan with id, or failing that the plan whose name equals
// name case-insensitively.
func Find(plans []Plan, id uuid.UUID, name string) (Plan, bool) {
	if id != uuid.Nil {
		for _, plan := range plans {
			if plan.ID == id {
				return plan, true
			}
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Plan{}, false
	}
	for _, plan := range plans {
		if strings.EqualFold(plan.Name, name) {
			return plan, true
		}
	}
	return Plan{}, false
}

// Label renders a plan for listings, marking the active one.
func (p Plan) Label() string {
	if p.Active {
		return p.Name + " (active)"
	}
	return p.Name
}
