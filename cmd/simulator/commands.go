package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/app"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

const usage = `Smart city data generator

Usage: simulator [flags] <command> [args]

Commands:
  generate                  run one generation tick
  continuous [interval]     tick until interrupted (default command)
  list                      smart poles and their module counts
  list-power                power meters
  list-flow                 flow meters
  list-categories           device categories
  control <id> <action>     switch a device: on, off or toggle
  view                      newest reading of every device
  seed                      load FLEET_FILE into the registry
  help                      show this message

Flags:
`

type cli struct {
	a     *app.App
	clock simulation.Clock
	out   io.Writer
	log   zerolog.Logger
}

func (c *cli) table(header string, rows func(w io.Writer)) {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	w.Flush()
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func (c *cli) generate(ctx context.Context) error {
	res := c.a.Engine.RunTick(ctx, c.clock.Now())
	fmt.Fprintf(c.out, "Tick at %s\n", res.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(c.out, "  weather: %.1f°C, %.1f%% humidity, %d lux\n",
		res.Weather.TemperatureC, res.Weather.HumidityPercent, res.Weather.LightIntensityLux)
	fmt.Fprintf(c.out, "  poles: %d  power meters: %d  flow meters: %d\n",
		len(res.PoleReadings), len(res.PowerReadings), len(res.FlowReadings))
	for _, s := range res.Skipped {
		fmt.Fprintf(c.out, "  skipped %s %s: %s\n", s.Kind, s.DeviceID, s.Reason)
	}
	if res.Lost > 0 {
		return fmt.Errorf("%d readings could not be stored", res.Lost)
	}
	return nil
}

func (c *cli) continuous(ctx context.Context, args []string) error {
	interval := config.TickInterval()
	if len(args) > 0 {
		if d, ok := config.ParseInterval(args[0]); ok {
			interval = d
		} else {
			c.log.Warn().Str("interval", args[0]).Dur("default", interval).Msg("invalid interval, using default")
		}
	}
	return c.a.Engine.Run(ctx, c.clock, interval)
}

func (c *cli) listPoles(ctx context.Context) error {
	poles, err := c.a.Services.Devices.PoleSummaries(ctx)
	if err != nil {
		return err
	}
	c.table("POLE\tLOCATION\tSTATUS\tMODULES", func(w io.Writer) {
		for _, p := range poles {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.PoleID, p.Location, p.Status, p.ModuleCount)
		}
	})
	return nil
}

func (c *cli) listPower(ctx context.Context) error {
	meters, err := c.a.Services.Devices.PowerMeters(ctx, "")
	if err != nil {
		return err
	}
	c.table("METER\tTYPE\tLOCATION\tROOM\tSTATUS", func(w io.Writer) {
		for _, m := range meters {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.MeterID, m.MeterType, m.Location, deref(m.RoomName, "-"), m.Status)
		}
	})
	return nil
}

func (c *cli) listFlow(ctx context.Context) error {
	meters, err := c.a.Services.Devices.FlowMeters(ctx, "")
	if err != nil {
		return err
	}
	c.table("METER\tTYPE\tUNIT\tLOCATION\tMAX RATE\tSTATUS", func(w io.Writer) {
		for _, m := range meters {
			maxRate := "-"
			if m.MaxFlowRate != nil {
				maxRate = fmt.Sprintf("%.1f", *m.MaxFlowRate)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", m.MeterID, m.MeterType, m.FlowUnit, m.Location, maxRate, m.Status)
		}
	})
	return nil
}

func (c *cli) listCategories(ctx context.Context) error {
	cats, err := c.a.Services.Devices.Categories(ctx)
	if err != nil {
		return err
	}
	c.table("CATEGORY\tNAME\tDESCRIPTION", func(w io.Writer) {
		for _, cat := range cats {
			fmt.Fprintf(w, "%s\t%s\t%s\n", cat.CategoryID, cat.CategoryName, deref(cat.Description, ""))
		}
	})
	return nil
}

func (c *cli) control(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: control <device id> <on|off|toggle>")
	}
	status, err := c.a.Services.Devices.Control(ctx, args[0], args[1])
	c.a.Metrics.ObserveControl(err)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s is now %s\n", args[0], status)
	return nil
}

func (c *cli) view(ctx context.Context) error {
	snap, err := c.a.Services.Readings.Latest(ctx)
	if err != nil {
		return err
	}
	if w := snap.Weather; w != nil {
		fmt.Fprintf(c.out, "Weather %s at %s: %.1f°C, %.1f%% humidity, wind %.1f m/s, rain %.1f mm, %d lux\n\n",
			w.StationID, w.Timestamp.Format("15:04:05"), w.TemperatureC, w.HumidityPercent,
			w.WindSpeedMS, w.RainfallMM, w.LightIntensityLux)
	} else {
		fmt.Fprintln(c.out, "No weather data available")
	}
	c.table("POLE\tTIME\tPOWER W\tENERGY KWH\tSTATUS", func(w io.Writer) {
		for _, r := range snap.Poles {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.4f\t%s\n", r.PoleID, r.Timestamp.Format("15:04:05"), r.PowerConsumptionW, r.EnergyKWh, r.Status)
		}
	})
	fmt.Fprintln(c.out)
	c.table("METER\tTIME\tPOWER W\tPF\tENERGY KWH", func(w io.Writer) {
		for _, r := range snap.Power {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.3f\t%.4f\n", r.MeterID, r.Timestamp.Format("15:04:05"), r.PowerW, r.PowerFactor, r.EnergyKWh)
		}
	})
	fmt.Fprintln(c.out)
	c.table("METER\tTIME\tRATE\tTOTAL\tTEMP C", func(w io.Writer) {
		for _, r := range snap.Flow {
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\t%.2f\n", r.MeterID, r.Timestamp.Format("15:04:05"), r.FlowRate, r.TotalVolume, r.TemperatureC)
		}
	})
	return nil
}

func (c *cli) seed(ctx context.Context) error {
	res, err := c.a.SeedFleet(ctx, c.a.Store)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Seeded %d categories, %d poles (%d modules), %d power meters, %d flow meters; %d already present\n",
		res.Categories, res.Poles, res.Modules, res.PowerMeters, res.FlowMeters, res.Existing)
	return nil
}

// run dispatches one command. It returns errUnknownCommand for anything it
// does not recognise.
func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch strings.ToLower(cmd) {
	case "", "continuous":
		return c.continuous(ctx, args)
	case "generate":
		return c.generate(ctx)
	case "list":
		return c.listPoles(ctx)
	case "list-power":
		return c.listPower(ctx)
	case "list-flow":
		return c.listFlow(ctx)
	case "list-categories":
		return c.listCategories(ctx)
	case "control":
		return c.control(ctx, args)
	case "view":
		return c.view(ctx)
	case "seed":
		return c.seed(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}
