package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ktstephano/rvm/asm"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.rasm|file.rimg>",
		Short: "Disassemble a program back to one mnemonic line per instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, _, _, err := loadImage(args[0])
			if err != nil {
				return err
			}
			for _, line := range asm.Disassemble(program) {
				fmt.Println(line)
			}
			return nil
		},
	}
}
