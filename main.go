// DWS7612 meter logger: polls the meter's optical interface on a fixed
// cycle, decodes the SML message stream and stores the energy registers
// in the meter database.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/collector"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/config"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/interpreter"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/liveapi"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/meterdb"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/port_reader"
)

func main() {
	app := &cli.App{
		Name:  "dws7612-logger",
		Usage: "Read and log energy registers of a DWS7612.2 power meter",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "once",
				Aliases: []string{"1"},
				Usage:   "Implies --verbose: read the meter once and exit",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Display runtime information",
			},
			&cli.BoolFlag{
				Name:    "nosql",
				Aliases: []string{"n"},
				Usage:   "Disable database logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	verbose := c.Bool("verbose") || c.Bool("once")

	if err := config.LoadLoggerConfig(); err != nil {
		return cli.Exit("Failed to load config: "+err.Error(), 1)
	}
	cfg := config.ActiveLoggerConfig

	// Resolve the device path, preferring lookup by USB device name.
	device := cfg.SerialDevice
	if cfg.DeviceName != "" {
		resolved, err := port_reader.FindPortByName(cfg.DeviceName)
		if err != nil {
			log.Printf("Device lookup failed, falling back to %s: %v", device, err)
		} else {
			device = resolved
		}
	}

	registers, err := buildRegisters(cfg.Registers)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// The channel is the one fatal resource: no port, no logger.
	channel, err := port_reader.Open(device)
	if err != nil {
		return cli.Exit("Failed to open channel: "+err.Error(), 1)
	}
	defer channel.Close()

	var sink collector.Sink
	if cfg.PersistenceEnabled && !c.Bool("nosql") {
		meterdb.InitializeDatabase()
		sink = meterdb.Store{}
	} else {
		log.Println("Database logging disabled")
	}

	col := collector.New(channel, registers, sink, collector.Options{
		Interval:    time.Duration(cfg.CycleSeconds) * time.Second,
		ReadTimeout: time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		Verbose:     verbose,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Bool("once") {
		res := col.RunOnce(ctx)
		for _, rd := range res.Readings {
			log.Printf("%s: %10.3f kWh", rd.OBIS, rd.Value)
		}
		if !res.Success {
			return cli.Exit("Read failed: "+res.Error, 1)
		}
		return nil
	}

	if cfg.ApiListen != "" {
		api := liveapi.NewServer(col)
		col.OnResult(api.Broadcast)
		go func() {
			if err := api.ListenAndServe(cfg.ApiListen); err != nil {
				log.Printf("Live API stopped: %v", err)
			}
		}()
	}

	log.Printf("Device:  %s", device)
	log.Printf("Cycle:   %ds", cfg.CycleSeconds)

	err = col.Run(ctx)
	if err != nil && ctx.Err() != nil {
		log.Println("Interrupted, shutting down.")
		return nil
	}
	return err
}

func buildRegisters(configs []config.RegisterConfig) ([]collector.Register, error) {
	registers := make([]collector.Register, 0, len(configs))
	for _, rc := range configs {
		id, err := interpreter.ParseOBIS(rc.Obis)
		if err != nil {
			return nil, err
		}
		registers = append(registers, collector.Register{OBIS: id, EntityID: rc.EntityID})
	}
	return registers, nil
}
