package http

import (
	"errors"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/service"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

type options struct {
	clock     simulation.Clock
	metrics   nethttp.Handler
	onControl func(error)
}

type Option func(*options)

// WithClock sets the clock POST /generate stamps readings with.
func WithClock(c simulation.Clock) Option { return func(o *options) { o.clock = c } }

// WithMetrics serves h on GET /metrics.
func WithMetrics(h nethttp.Handler) Option { return func(o *options) { o.metrics = h } }

// WithControlObserver is called with the outcome of every control request.
func WithControlObserver(fn func(error)) Option { return func(o *options) { o.onControl = fn } }

// fail maps domain errors onto status codes.
func fail(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidAction), errors.Is(err, domain.ErrUnsupportedType):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		code = fiber.StatusConflict
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func Register(app *fiber.App, svcs *service.Services, opts ...Option) {
	o := options{clock: simulation.SystemClock{}, onControl: func(error) {}}
	for _, opt := range opts {
		opt(&o)
	}
	h := &handlers{svcs: svcs, opts: o}

	app.Get("/", h.root)
	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	if o.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(o.metrics))
	}

	app.Get("/categories", h.categories)

	poles := app.Group("/smart-poles")
	poles.Get("/", h.listPoles)
	poles.Post("/", h.createPole)
	poles.Get("/:id", h.getPole)
	poles.Put("/:id/control", h.controlPole)
	poles.Delete("/:id", h.deletePole)
	poles.Get("/:id/modules", h.listModules)
	poles.Post("/:id/modules", h.addModule)

	power := app.Group("/power-meters")
	power.Get("/", h.listPowerMeters)
	power.Post("/", h.createPowerMeter)
	power.Get("/:id", h.getPowerMeter)
	power.Get("/:id/readings", h.powerReadings)
	power.Get("/:id/summary", h.powerSummary)
	power.Delete("/:id", h.deletePowerMeter)

	flow := app.Group("/flow-meters")
	flow.Get("/", h.listFlowMeters)
	flow.Post("/", h.createFlowMeter)
	flow.Get("/:id", h.getFlowMeter)
	flow.Get("/:id/readings", h.flowReadings)
	flow.Delete("/:id", h.deleteFlowMeter)

	app.Get("/weather/latest", h.latestWeather)
	app.Get("/readings/latest", h.latestReadings)
	app.Get("/statistics/power-consumption", h.powerStats)
	app.Get("/statistics/flow-rates", h.flowStats)
	app.Get("/maintenance", h.maintenanceAll)
	app.Get("/maintenance/:id", h.maintenance)
	app.Post("/maintenance/:id/service", h.recordService)

	app.Post("/devices/:id/control", h.controlDevice)
	app.Post("/generate", h.generate)
}

type handlers struct {
	svcs *service.Services
	opts options
}

func (h *handlers) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Smart City Data Generator API",
		"version": "1.0.0",
		"categories": []string{
			"Smart Poles",
			"Weather Stations",
			"Power Meters (1-phase & 3-phase)",
			"Flow Meters (Water, Gas, Steam, Air)",
		},
	})
}

func (h *handlers) categories(c *fiber.Ctx) error {
	items, err := h.svcs.Devices.Categories(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

// Smart poles

func (h *handlers) listPoles(c *fiber.Ctx) error {
	items, err := h.svcs.Devices.Poles(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) createPole(c *fiber.Ctx) error {
	var p domain.Pole
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, err.Error())
	}
	created, err := h.svcs.Devices.CreatePole(c.UserContext(), p)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Smart pole created successfully", "pole_id": created.PoleID})
}

func (h *handlers) getPole(c *fiber.Ctx) error {
	p, err := h.svcs.Devices.Pole(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

type controlRequest struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

func (h *handlers) controlPole(c *fiber.Ctx) error {
	var req controlRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	id := c.Params("id")
	status, err := h.svcs.Devices.ControlPole(c.UserContext(), id, req.Status)
	h.opts.onControl(err)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Smart pole " + id + " status updated", "pole_id": id, "status": status})
}

func (h *handlers) controlDevice(c *fiber.Ctx) error {
	var req controlRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	id := c.Params("id")
	status, err := h.svcs.Devices.Control(c.UserContext(), id, req.Action)
	h.opts.onControl(err)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"device_id": id, "status": status})
}

func (h *handlers) deletePole(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svcs.Devices.DeletePole(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Smart pole " + id + " deleted successfully"})
}

func (h *handlers) listModules(c *fiber.Ctx) error {
	items, err := h.svcs.Devices.Modules(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) addModule(c *fiber.Ctx) error {
	var m domain.PoleModule
	if err := c.BodyParser(&m); err != nil {
		return badRequest(c, err.Error())
	}
	m.PoleID = c.Params("id")
	created, err := h.svcs.Devices.AddModule(c.UserContext(), m)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Module added successfully", "module_id": created.ID})
}

// Power meters

func (h *handlers) listPowerMeters(c *fiber.Ctx) error {
	items, err := h.svcs.Devices.PowerMeters(c.UserContext(), c.Query("meter_type"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) createPowerMeter(c *fiber.Ctx) error {
	var m domain.PowerMeter
	if err := c.BodyParser(&m); err != nil {
		return badRequest(c, err.Error())
	}
	created, err := h.svcs.Devices.CreatePowerMeter(c.UserContext(), m)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Power meter created successfully", "meter_id": created.MeterID})
}

func (h *handlers) getPowerMeter(c *fiber.Ctx) error {
	m, err := h.svcs.Devices.PowerMeter(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(m)
}

func (h *handlers) deletePowerMeter(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svcs.Devices.DeletePowerMeter(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Power meter " + id + " deleted successfully"})
}

// queryInt reads an optional integer query parameter.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

type threePhase struct {
	VoltageL1V *float64 `json:"voltage_l1_v"`
	VoltageL2V *float64 `json:"voltage_l2_v"`
	VoltageL3V *float64 `json:"voltage_l3_v"`
	CurrentL1A *float64 `json:"current_l1_a"`
	CurrentL2A *float64 `json:"current_l2_a"`
	CurrentL3A *float64 `json:"current_l3_a"`
	PowerL1W   *float64 `json:"power_l1_w"`
	PowerL2W   *float64 `json:"power_l2_w"`
	PowerL3W   *float64 `json:"power_l3_w"`
}

// powerReading nests the per-phase values, null for 1-phase meters.
type powerReading struct {
	Timestamp   time.Time   `json:"timestamp"`
	VoltageV    float64     `json:"voltage_v"`
	CurrentA    float64     `json:"current_a"`
	PowerW      float64     `json:"power_w"`
	PowerFactor float64     `json:"power_factor"`
	EnergyKWh   float64     `json:"energy_kwh"`
	FrequencyHz float64     `json:"frequency_hz"`
	ThreePhase  *threePhase `json:"three_phase"`
}

func toPowerReading(r domain.PowerMeterReading) powerReading {
	out := powerReading{
		Timestamp:   r.Timestamp,
		VoltageV:    r.VoltageV,
		CurrentA:    r.CurrentA,
		PowerW:      r.PowerW,
		PowerFactor: r.PowerFactor,
		EnergyKWh:   r.EnergyKWh,
		FrequencyHz: r.FrequencyHz,
	}
	if r.ThreePhase() {
		out.ThreePhase = &threePhase{
			VoltageL1V: r.VoltageL1V, VoltageL2V: r.VoltageL2V, VoltageL3V: r.VoltageL3V,
			CurrentL1A: r.CurrentL1A, CurrentL2A: r.CurrentL2A, CurrentL3A: r.CurrentL3A,
			PowerL1W: r.PowerL1W, PowerL2W: r.PowerL2W, PowerL3W: r.PowerL3W,
		}
	}
	return out
}

func (h *handlers) powerReadings(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", service.DefaultReadingLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	readings, err := h.svcs.Readings.PowerMeterReadings(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return fail(c, err)
	}
	out := make([]powerReading, len(readings))
	for i, r := range readings {
		out[i] = toPowerReading(r)
	}
	return c.JSON(out)
}

func (h *handlers) powerSummary(c *fiber.Ctx) error {
	hours, err := queryInt(c, "hours", 24)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if hours <= 0 {
		return badRequest(c, "hours must be positive")
	}
	sum, err := h.svcs.Stats.MeterSummary(c.UserContext(), c.Params("id"), time.Duration(hours)*time.Hour)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sum)
}

// Flow meters

func (h *handlers) listFlowMeters(c *fiber.Ctx) error {
	items, err := h.svcs.Devices.FlowMeters(c.UserContext(), c.Query("meter_type"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) createFlowMeter(c *fiber.Ctx) error {
	var m domain.FlowMeter
	if err := c.BodyParser(&m); err != nil {
		return badRequest(c, err.Error())
	}
	created, err := h.svcs.Devices.CreateFlowMeter(c.UserContext(), m)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Flow meter created successfully", "meter_id": created.MeterID})
}

func (h *handlers) getFlowMeter(c *fiber.Ctx) error {
	m, err := h.svcs.Devices.FlowMeter(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(m)
}

func (h *handlers) flowReadings(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", service.DefaultReadingLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	readings, err := h.svcs.Readings.FlowMeterReadings(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(readings)
}

func (h *handlers) deleteFlowMeter(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svcs.Devices.DeleteFlowMeter(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Flow meter " + id + " deleted successfully"})
}

// Readings, statistics and maintenance

func (h *handlers) latestWeather(c *fiber.Ctx) error {
	w, err := h.svcs.Readings.LatestWeather(c.UserContext())
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No weather data available"})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(w)
}

func (h *handlers) latestReadings(c *fiber.Ctx) error {
	snap, err := h.svcs.Readings.Latest(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(snap)
}

func (h *handlers) powerStats(c *fiber.Ctx) error {
	stats, err := h.svcs.Stats.PowerConsumption(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

func (h *handlers) flowStats(c *fiber.Ctx) error {
	stats, err := h.svcs.Stats.FlowRates(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

func (h *handlers) maintenance(c *fiber.Ctx) error {
	p, err := h.svcs.Maintenance.Predict(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

func (h *handlers) recordService(c *fiber.Ctx) error {
	p, err := h.svcs.Maintenance.RecordService(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

func (h *handlers) maintenanceAll(c *fiber.Ctx) error {
	items, err := h.svcs.Maintenance.PredictAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

// generate runs one tick on demand and reports what it produced.
func (h *handlers) generate(c *fiber.Ctx) error {
	if h.svcs.Engine == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "generator not configured"})
	}
	res := h.svcs.Engine.RunTick(c.UserContext(), h.opts.clock.Now())
	return c.JSON(fiber.Map{
		"timestamp":      res.Timestamp,
		"weather":        res.Weather,
		"pole_readings":  len(res.PoleReadings),
		"power_readings": len(res.PowerReadings),
		"flow_readings":  len(res.FlowReadings),
		"skipped":        res.Skipped,
		"lost":           res.Lost,
	})
}
