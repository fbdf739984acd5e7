package simulation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

// StatusStore is the write side of device status.
type StatusStore interface {
	// DeviceStatus resolves any device id to its kind and current status.
	DeviceStatus(ctx context.Context, deviceID string) (domain.DeviceKind, string, error)
	SetStatus(ctx context.Context, kind domain.DeviceKind, deviceID, status string) error
}

const (
	ActionOn     = "on"
	ActionOff    = "off"
	ActionToggle = "toggle"
)

func ParseAction(s string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(s))
	switch a {
	case ActionOn, ActionOff, ActionToggle:
		return a, nil
	}
	return "", fmt.Errorf("%q (use on, off or toggle): %w", s, domain.ErrInvalidAction)
}

// statusFor maps an on/off action onto the status vocabulary of a device kind.
func statusFor(kind domain.DeviceKind, on bool) string {
	if kind == domain.KindPole {
		if on {
			return domain.StatusOn
		}
		return domain.StatusOff
	}
	if on {
		return domain.StatusActive
	}
	return domain.StatusInactive
}

func isOn(status string) bool {
	return status == domain.StatusOn || status == domain.StatusActive
}

// ControlDevice applies on, off or toggle to a device and returns the
// resulting status. An invalid action is rejected before any lookup.
func (o *Orchestrator) ControlDevice(ctx context.Context, deviceID, action string) (string, error) {
	a, err := ParseAction(action)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	kind, current, err := o.status.DeviceStatus(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("device %s: %w", deviceID, err)
	}

	var next string
	switch a {
	case ActionOn:
		next = statusFor(kind, true)
	case ActionOff:
		next = statusFor(kind, false)
	case ActionToggle:
		next = statusFor(kind, !isOn(current))
	}

	if err := o.status.SetStatus(ctx, kind, deviceID, next); err != nil {
		return "", fmt.Errorf("set status of %s: %w", deviceID, err)
	}
	o.log.Info().Str("device_id", deviceID).Str("kind", string(kind)).
		Str("from", current).Str("to", next).Msg("device status changed")
	return next, nil
}
