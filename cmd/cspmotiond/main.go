package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"cspmotion/pkg/axis"
	"cspmotion/pkg/config"
	"cspmotion/pkg/lifecycle"
	"cspmotion/pkg/loop"
	"cspmotion/pkg/master"

	log "github.com/sirupsen/logrus"
)

const defaultConfigPath = "cspmotion.ini"

func main() {
	log.SetLevel(log.InfoLevel)

	configPath := flag.String("c", defaultConfigPath, "path to the deployment INI config")
	verbose := flag.Bool("v", false, "enable debug logging")
	syncThreshold := flag.Int64("sync-threshold", 0, "adjacent-axis position-difference emergency stop threshold, in pulses (0 disables)")
	couplingEnabled := flag.Bool("coupling", false, "enable cross-axis coupling correction")
	couplingGain := flag.Float64("coupling-gain", 0, "cross-axis coupling gain (0 uses the default)")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[MAIN] loading %s: %v", *configPath, err)
	}

	bus := newMaster()

	clock := lifecycle.RealClock()
	manager := lifecycle.New(bus, cfg.Bus.CyclePeriod, clock)

	axisConfigs := make(map[axis.ID]axis.Config, len(cfg.Axes))
	for _, a := range cfg.Axes {
		axisConfigs[a.ID] = a.Config
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Init(ctx, cfg.Bus.Adapter, cfg.Bus.SlaveCount, axisConfigs); err != nil {
		log.Fatalf("[MAIN] init: %v", err)
	}

	l := loop.New(loop.Config{
		Bus:             bus,
		Lifecycle:       manager,
		Clock:           loop.RealClock(),
		Period:          cfg.Bus.CyclePeriod,
		Axes:            axisConfigs,
		SyncThreshold:   *syncThreshold,
		CouplingEnabled: *couplingEnabled,
		CouplingGain:    *couplingGain,
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("[MAIN] signal received, stopping")
		l.Enqueue(loop.StopAll{})
	}()

	log.Infof("[MAIN] starting control loop, period %s", cfg.Bus.CyclePeriod)
	if err := l.Run(ctx); err != nil {
		log.Fatalf("[MAIN] loop exited with error: %v", err)
	}
}

// newMaster is the seam where a real EtherCAT master implementation
// (SOEM bindings or similar) would be constructed; the core itself is
// transport-agnostic and only depends on the master.Master interface.
func newMaster() master.Master {
	panic("cspmotiond: no EtherCAT master implementation wired; provide one satisfying master.Master")
}
