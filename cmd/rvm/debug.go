package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ktstephano/rvm/internal/debugger"
	"github.com/ktstephano/rvm/internal/peripheral"
	"github.com/ktstephano/rvm/vm"
)

func newDebugCmd(gf *globalFlags) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "debug <file.rasm|file.rimg>",
		Short: "Launch the interactive debugger against a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, gf)
			if err != nil {
				return err
			}

			program, dataImage, entry, err := loadImage(args[0])
			if err != nil {
				return err
			}

			mem := vm.NewMemory(cfg.MemBytes, cfg.PeripheralBase, peripheral.NewConsole(os.Stdout))
			cpu := vm.NewCPU(mem)
			cpu.Seed(gf.seed)
			cpu.Load(program, dataImage, entry)

			log.Debug("entering debugger")
			if plain {
				return debugger.RunPlain(cpu, program)
			}
			return debugger.Run(cpu, program)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-oriented REPL instead of the TUI")
	return cmd
}
