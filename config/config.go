// Package config provides the JSON machine configuration of the simulator.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// CCConfig holds the initial condition-code flags.
type CCConfig struct {
	Zero     bool `json:"zero"`
	Sign     bool `json:"sign"`
	Overflow bool `json:"overflow"`
}

// CC converts the flags to insts.CC.
func (c CCConfig) CC() insts.CC {
	return insts.CC{Z: c.Zero, S: c.Sign, O: c.Overflow}
}

// MachineConfig describes the simulated machine.
type MachineConfig struct {
	// MemorySize is the addressable memory size in bytes.
	// Default: 1 MiB.
	MemorySize uint64 `json:"memory_size"`

	// MaxPages caps the number of resident 1 KiB pages. 0 means the whole
	// address space may become resident.
	MaxPages int `json:"max_pages"`

	// Registers is the number of program registers. Default: 15.
	Registers int `json:"registers"`

	// StackPointer is the initial %rsp when the program does not set one.
	// 0 leaves %rsp at 0.
	StackPointer uint64 `json:"stack_pointer"`

	// MaxCycles bounds a run. 0 means unlimited.
	MaxCycles uint64 `json:"max_cycles"`

	// InitialCC is the condition-code value after reset. Default: zero set.
	InitialCC CCConfig `json:"initial_cc"`

	// LogLevel is a logrus level name. Default: "info".
	LogLevel string `json:"log_level"`
}

// DefaultMachineConfig returns the default machine.
func DefaultMachineConfig() *MachineConfig {
	return &MachineConfig{
		MemorySize: emu.DefaultMemorySize,
		MaxPages:   0,
		Registers:  emu.DefaultNumRegs,
		MaxCycles:  0,
		InitialCC:  CCConfig{Zero: true},
		LogLevel:   logrus.InfoLevel.String(),
	}
}

// LoadConfig loads a MachineConfig from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config file: %w", err)
	}

	config := DefaultMachineConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a MachineConfig to a JSON file.
func (c *MachineConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize machine config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write machine config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a usable machine.
func (c *MachineConfig) Validate() error {
	if c.MemorySize == 0 {
		return fmt.Errorf("memory_size must be > 0")
	}
	if c.MemorySize%8 != 0 {
		return fmt.Errorf("memory_size must be a multiple of 8")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max_pages must be >= 0")
	}
	if c.Registers <= int(insts.RegRSP) || c.Registers > insts.NumRegs {
		return fmt.Errorf("registers must be in [%d, %d]", insts.RegRSP+1, insts.NumRegs)
	}
	if c.StackPointer > c.MemorySize {
		return fmt.Errorf("stack_pointer must be <= memory_size")
	}
	if c.StackPointer%8 != 0 {
		return fmt.Errorf("stack_pointer must be 8-byte aligned")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level, falling back to Info.
func (c *MachineConfig) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Clone returns a deep copy of the MachineConfig.
func (c *MachineConfig) Clone() *MachineConfig {
	clone := *c
	return &clone
}
