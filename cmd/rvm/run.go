package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ktstephano/rvm/asm"
	"github.com/ktstephano/rvm/internal/peripheral"
	"github.com/ktstephano/rvm/vm"
)

func newRunCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.rimg>",
		Short: "Load an assembled image and run it to completion",
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

			log.WithField("budget", cfg.CycleBudget).Debug("running")
			status, completed := cpu.Cycle(cfg.CycleBudget)

			fmt.Println("status:", status)
			if completed {
				fmt.Println("(cycle budget exhausted without reaching a terminal state)")
			}
			for r := 0; r < vm.NumRegisters; r++ {
				if v := cpu.Register(uint8(r)); v != 0 {
					fmt.Printf("r%d = %s\n", r, v)
				}
			}

			if status.IsTrap() {
				return fmt.Errorf("program trapped: %s", status)
			}
			return nil
		},
	}
}

// loadImage reads either a binary .rimg or a plain .rasm file, assembling
// the latter on the fly so `rvm run foo.rasm` works without a separate
// assemble step.
func loadImage(path string) (program []vm.Word, dataImage []byte, entry uint32, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, 0, err
	}

	if program, dataImage, entry, err := asm.DecodeImage(raw); err == nil {
		return program, dataImage, entry, nil
	}

	assembled, errs := asm.Assemble(string(raw), 0)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s:%d: %s\n", path, e.Line, e.Message)
		}
		return nil, nil, 0, fmt.Errorf("assembly failed with %d error(s)", len(errs))
	}
	return assembled.Program, assembled.DataImage, assembled.Entry, nil
}
