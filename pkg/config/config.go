// Package config loads the bus and per-axis configuration from an INI
// file, the same format and library the rest of this codebase's lineage
// uses for its object-dictionary and deployment configuration.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cspmotion/pkg/axis"

	"gopkg.in/ini.v1"
)

// Bus holds the EtherCAT adapter and cycle configuration.
type Bus struct {
	Adapter     string
	SlaveCount  int
	CyclePeriod time.Duration
}

// Axis holds one [axisN] section's configuration, keyed by its ID.
type Axis struct {
	ID     axis.ID
	Config axis.Config
}

// Config is the fully parsed contents of a deployment's INI file.
type Config struct {
	Bus  Bus
	Axes []Axis
}

const defaultCyclePeriodMs = 10

// Load parses path (an INI file) into a Config. Unknown [axisN] sections
// beyond Bus.SlaveCount are ignored; axes with no matching section fall
// back to axis.DefaultConfig().
func Load(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	busSection := file.Section("bus")
	adapter := busSection.Key("adapter").String()
	if adapter == "" {
		return Config{}, fmt.Errorf("config: %s: [bus] adapter is required", path)
	}
	slaveCount, err := busSection.Key("slave_count").Int()
	if err != nil || slaveCount <= 0 {
		return Config{}, fmt.Errorf("config: %s: [bus] slave_count must be a positive integer", path)
	}
	cycleMs := busSection.Key("cycle_period_ms").MustInt(defaultCyclePeriodMs)

	cfg := Config{
		Bus: Bus{
			Adapter:     adapter,
			SlaveCount:  slaveCount,
			CyclePeriod: time.Duration(cycleMs) * time.Millisecond,
		},
	}

	for i := 0; i < slaveCount; i++ {
		sectionName := fmt.Sprintf("axis%d", i)
		axCfg := axis.DefaultConfig()
		if file.HasSection(sectionName) {
			section := file.Section(sectionName)
			if kind, err := parseKind(section.Key("kind").String()); err == nil {
				axCfg.Kind = kind
			}
			axCfg.ProfileVelocityRPM = section.Key("velocity_rpm").MustFloat64(axCfg.ProfileVelocityRPM)
			axCfg.ProfileAccRPMPerS = section.Key("accel_rpm_per_s").MustFloat64(axCfg.ProfileAccRPMPerS)
			axCfg.ProfileDecRPMPerS = section.Key("decel_rpm_per_s").MustFloat64(axCfg.ProfileDecRPMPerS)
		}
		cfg.Axes = append(cfg.Axes, Axis{ID: axis.ID(i), Config: axCfg})
	}

	return cfg, nil
}

func parseKind(s string) (axis.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return axis.KindX, nil
	case "Z":
		return axis.KindZ, nil
	case "":
		return 0, fmt.Errorf("config: empty axis kind")
	default:
		if n, err := strconv.Atoi(s); err == nil {
			return axis.Kind(n), nil
		}
		return 0, fmt.Errorf("config: unknown axis kind %q", s)
	}
}
