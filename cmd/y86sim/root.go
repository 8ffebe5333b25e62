package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/y86sim/config"
	"github.com/sarchlab/y86sim/core"
	"github.com/sarchlab/y86sim/loader"
)

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	maxCycles  uint64
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "y86sim",
		Short: "Y86-64 sequential processor simulator",
		Long: `y86sim runs Y86-64 programs on a five-phase sequential processor model
(fetch, decode, execute, memory, write-back).

Programs are read as yas object listings (.yo) or as raw images.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to machine configuration JSON file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (overrides the configuration)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "Emit logs as JSON")
	flags.Uint64Var(&opts.maxCycles, "max-cycles", 0, "Stop after this many cycles (overrides the configuration)")

	root.AddCommand(
		newRunCmd(opts),
		newDisasmCmd(),
		newDebugCmd(opts),
		newBenchCmd(opts),
	)

	return root
}

// machineConfig loads the configuration and applies flag overrides.
func (o *globalOptions) machineConfig() (*config.MachineConfig, error) {
	cfg := config.DefaultMachineConfig()
	if o.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
	}

	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.maxCycles != 0 {
		cfg.MaxCycles = o.maxCycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger for a run.
func (o *globalOptions) newLogger(cfg *config.MachineConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(cfg.Level())
	if o.logJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger
}

// newMachine loads a program and builds a core for it.
func (o *globalOptions) newMachine(cmd *cobra.Command, prog *loader.Program) (*core.Core, error) {
	cfg, err := o.machineConfig()
	if err != nil {
		return nil, err
	}

	logger := o.newLogger(cfg, cmd.ErrOrStderr())

	c, err := core.NewCore(cfg, core.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := c.Load(prog); err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	return c, nil
}

// loadProgram reads the program named by path.
func loadProgram(path string, raw bool, entry uint64) (*loader.Program, error) {
	if raw {
		return loader.LoadRawFile(path, entry)
	}
	return loader.Load(path)
}
