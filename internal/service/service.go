package service

import (
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/repository"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

type Services struct {
	Store       repository.Store
	Engine      *simulation.Orchestrator
	Devices     *DeviceService
	Readings    *ReadingService
	Stats       *StatsService
	Maintenance *MaintenanceService
}

// New wires the services over store. engine drives control and on-demand
// ticks and shares its flow accumulator with device deletes.
func New(store repository.Store, engine *simulation.Orchestrator, log zerolog.Logger) *Services {
	return &Services{
		Store:       store,
		Engine:      engine,
		Devices:     &DeviceService{store: store, engine: engine},
		Readings:    &ReadingService{store: store, log: log},
		Stats:       NewStatsService(store),
		Maintenance: NewMaintenanceService(store, log),
	}
}
