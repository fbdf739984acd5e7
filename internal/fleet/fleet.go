// Package fleet loads a device inventory from YAML and registers it in a store.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

type Fleet struct {
	Categories  []domain.Category   `yaml:"categories"`
	Poles       []domain.Pole       `yaml:"poles"`
	PowerMeters []domain.PowerMeter `yaml:"power_meters"`
	FlowMeters  []domain.FlowMeter  `yaml:"flow_meters"`
}

// Registry is the write side a fleet is seeded into.
type Registry interface {
	UpsertCategory(ctx context.Context, c domain.Category) error
	CreatePole(ctx context.Context, p domain.Pole) (domain.Pole, error)
	AddModule(ctx context.Context, m domain.PoleModule) (domain.PoleModule, error)
	CreatePowerMeter(ctx context.Context, m domain.PowerMeter) (domain.PowerMeter, error)
	CreateFlowMeter(ctx context.Context, m domain.FlowMeter) (domain.FlowMeter, error)
}

func Load(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fleet and fills in default statuses.
func Parse(data []byte) (*Fleet, error) {
	var f Fleet
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fleet: %w", err)
	}
	for i := range f.Poles {
		p := &f.Poles[i]
		if p.Status == "" {
			p.Status = domain.StatusOn
		}
		for j := range p.Modules {
			p.Modules[j].PoleID = p.PoleID
			if p.Modules[j].Status == "" {
				p.Modules[j].Status = domain.StatusActive
			}
		}
	}
	for i := range f.PowerMeters {
		if f.PowerMeters[i].Status == "" {
			f.PowerMeters[i].Status = domain.StatusActive
		}
	}
	for i := range f.FlowMeters {
		if f.FlowMeters[i].Status == "" {
			f.FlowMeters[i].Status = domain.StatusActive
		}
	}
	return &f, nil
}

// Result counts what Seed created; devices that already exist are skipped.
type Result struct {
	Categories  int
	Poles       int
	Modules     int
	PowerMeters int
	FlowMeters  int
	Existing    int
}

// Seed registers every device of f. Seeding the same fleet twice is a no-op;
// modules are only attached to poles created by this call.
func Seed(ctx context.Context, reg Registry, f *Fleet) (Result, error) {
	var res Result
	for _, c := range f.Categories {
		if err := reg.UpsertCategory(ctx, c); err != nil {
			return res, fmt.Errorf("category %s: %w", c.CategoryID, err)
		}
		res.Categories++
	}

	for _, p := range f.Poles {
		if _, err := reg.CreatePole(ctx, p); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				res.Existing++
				continue
			}
			return res, fmt.Errorf("pole %s: %w", p.PoleID, err)
		}
		res.Poles++
		for _, m := range p.Modules {
			if _, err := reg.AddModule(ctx, m); err != nil {
				return res, fmt.Errorf("module %s on %s: %w", m.ModuleName, p.PoleID, err)
			}
			res.Modules++
		}
	}

	for _, m := range f.PowerMeters {
		if _, err := reg.CreatePowerMeter(ctx, m); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				res.Existing++
				continue
			}
			return res, fmt.Errorf("power meter %s: %w", m.MeterID, err)
		}
		res.PowerMeters++
	}

	for _, m := range f.FlowMeters {
		if _, err := reg.CreateFlowMeter(ctx, m); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				res.Existing++
				continue
			}
			return res, fmt.Errorf("flow meter %s: %w", m.MeterID, err)
		}
		res.FlowMeters++
	}
	return res, nil
}
