package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ktstephano/rvm/asm"
)

func newAssembleCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "assemble <file.rasm>",
		Short: "Assemble a source file into a binary rvm image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			memBytes, _ := cmd.Flags().GetInt("mem-bytes")
			log.WithField("file", args[0]).Debug("assembling")

			assembled, errs := asm.Assemble(string(src), memBytes)
			if len(errs) > 0 {
				for _, e := range errs {
					if e.Line > 0 {
						fmt.Fprintf(os.Stderr, "%s:%d: %s\n", args[0], e.Line, e.Message)
					} else {
						fmt.Fprintf(os.Stderr, "%s: %s\n", args[0], e.Message)
					}
				}
				return fmt.Errorf("assembly failed with %d error(s)", len(errs))
			}

			if out == "" {
				out = args[0] + ".rimg"
			}
			if err := os.WriteFile(out, asm.EncodeImage(assembled), 0o644); err != nil {
				return err
			}
			log.WithFields(logrusFields(assembled)).Info("assembled")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output image path (default: <input>.rimg)")
	return cmd
}

func logrusFields(a *asm.Assembled) logrus.Fields {
	return logrus.Fields{
		"words": len(a.Program),
		"data":  len(a.DataImage),
		"entry": a.Entry,
	}
}
