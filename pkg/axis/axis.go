// Package axis defines per-axis configuration and the mm<->pulse unit
// conversions that every other package in this module builds on.
package axis

import (
	"fmt"
	"math"
)

// Kind selects the mechanical conversion factor (mm per motor revolution)
// for an axis.
type Kind uint8

const (
	KindX Kind = iota
	KindZ
)

// mmPerRev holds the configured mechanical ratio for each axis Kind.
var mmPerRev = map[Kind]float64{
	KindX: 11.9993,
	KindZ: 5.9997,
}

func (k Kind) String() string {
	switch k {
	case KindX:
		return "X"
	case KindZ:
		return "Z"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// MmPerRev returns the mechanical mm-per-revolution ratio for k, or false
// if k is not a recognized axis kind.
func (k Kind) MmPerRev() (float64, bool) {
	v, ok := mmPerRev[k]
	return v, ok
}

// ID identifies one axis (slave) by its position in the EtherCAT process
// image, 0-indexed in slave discovery order.
type ID int

// PulsesPerRev is the encoder resolution before the position factor is
// applied.
const PulsesPerRev = 8_388_608

// PositionFactor doubles every driver-scale value; it is a fixed property
// of the drive configuration, not something tuned per deployment.
const PositionFactor = 2

// PulsesPerRevDriver is the effective encoder resolution once
// PositionFactor is folded in. Every mm<->pulse conversion in this module
// uses this constant, never PulsesPerRev directly.
const PulsesPerRevDriver = PulsesPerRev * PositionFactor

// Config is the immutable, per-axis configuration set before the bus
// starts. ProfileVelocityRPM, ProfileAccRPMPerS and ProfileDecRPMPerS are
// applied to the drive via SDO during lifecycle init (spec 0x6081/0x6083/
// 0x6084) and used locally for trajectory duration computation.
type Config struct {
	Kind               Kind
	ProfileVelocityRPM float64
	ProfileAccRPMPerS  float64
	ProfileDecRPMPerS  float64
}

// DefaultProfileVelocityRPM is the profile velocity DefaultConfig gives
// every axis until a config file or a SetVelocity command changes it.
const DefaultProfileVelocityRPM = 60

// DefaultConfig returns the configuration every axis starts with.
func DefaultConfig() Config {
	return Config{
		Kind:               KindX,
		ProfileVelocityRPM: DefaultProfileVelocityRPM,
	}
}

// MmToPulses converts a position in millimeters to a relative
// driver-scale pulse count for the given axis kind. The result must still
// be offset by the axis's origin to become an absolute target.
func MmToPulses(mm float64, kind Kind) (int64, error) {
	ratio, ok := kind.MmPerRev()
	if !ok {
		return 0, fmt.Errorf("axis: unknown kind %v", kind)
	}
	revolutions := mm / ratio
	return int64(math.Round(revolutions * PulsesPerRevDriver)), nil
}

// PulsesToMm is the inverse of MmToPulses, used by current_position_mm.
func PulsesToMm(pulses int64, kind Kind) (float64, error) {
	ratio, ok := kind.MmPerRev()
	if !ok {
		return 0, fmt.Errorf("axis: unknown kind %v", kind)
	}
	revolutions := float64(pulses) / PulsesPerRevDriver
	return revolutions * ratio, nil
}
