// Command rvm assembles and runs programs for the register-based VM
// described by the rvm/asm and rvm/vm packages.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ktstephano/rvm/internal/config"
)

var log = logrus.New()

// globalFlags mirrors config.Resolved before CLI/config precedence is
// applied; cobra only tells us a flag was "set" via Flags().Changed, so we
// keep the raw values and changed-bits separate until Resolve time.
type globalFlags struct {
	memBytes       int
	peripheralBase uint32
	cycleBudget    int
	seed           uint64
	configPath     string
}

func newRootCmd() *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:   "rvm",
		Short: "Assembler and emulator for the rvm register machine",
	}

	root.PersistentFlags().IntVar(&gf.memBytes, "mem-bytes", config.DefaultMemBytes, "linear memory size in bytes")
	root.PersistentFlags().Uint32Var(&gf.peripheralBase, "peripheral-base", config.DefaultPeripheralBase, "address at which the peripheral window begins")
	root.PersistentFlags().IntVar(&gf.cycleBudget, "cycle-budget", config.DefaultCycleBudget, "maximum instructions to execute before giving up")
	root.PersistentFlags().Uint64Var(&gf.seed, "seed", 1, "seed for RNGI/RNGF")
	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "path to an rvm.toml overriding the defaults above")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(newAssembleCmd())
	root.AddCommand(newRunCmd(&gf))
	root.AddCommand(newDebugCmd(&gf))
	root.AddCommand(newDisasmCmd())

	return root
}

var verbose bool

// resolveConfig applies flag > config file > default precedence for the
// three runtime-shaping settings, logging which config file (if any) it read.
func resolveConfig(cmd *cobra.Command, gf *globalFlags) (config.Resolved, error) {
	var cfg *config.File
	if gf.configPath != "" {
		f, err := config.Load(gf.configPath)
		if err != nil {
			return config.Resolved{}, err
		}
		cfg = f
		log.WithField("path", gf.configPath).Debug("loaded config file")
	}

	flags := cmd.Flags()
	return config.Resolve(
		cfg,
		gf.memBytes, flags.Changed("mem-bytes"),
		gf.peripheralBase, flags.Changed("peripheral-base"),
		gf.cycleBudget, flags.Changed("cycle-budget"),
	), nil
}

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: false})
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
