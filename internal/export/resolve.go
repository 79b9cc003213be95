package export

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/glowflux/glowflux/internal/glowmarkt"
)

// selectDevices resolves the devices a run covers, sorted by id. An unknown
// id in single-device mode is reported as a warning and yields an empty
// selection rather than an error.
func (p *Pipeline) selectDevices(ctx context.Context, id string) ([]glowmarkt.Device, error) {
	if id == "" {
		byID, err := p.client.Devices(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve devices: %w", err)
		}
		devices := make([]glowmarkt.Device, 0, len(byID))
		for _, device := range byID {
			devices = append(devices, device)
		}
		sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
		return devices, nil
	}

	device, err := p.client.Device(ctx, id)
	if err != nil {
		if errors.Is(err, glowmarkt.ErrUnknownEntity) {
			p.logger.WithField("device", id).Warn("Unknown device, nothing to export")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve device %s: %w", id, err)
	}
	return []glowmarkt.Device{*device}, nil
}

// resolveResources loads the full resource collection the sensors will be
// matched against. Resolution is all or nothing; a failure here aborts the
// run before anything is fetched or written.
func (p *Pipeline) resolveResources(ctx context.Context) (map[string]glowmarkt.Resource, error) {
	resources, err := p.client.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve resources: %w", err)
	}
	return resources, nil
}
