package main

import (
	"bytes"
	"fmt"

	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/export"
	"github.com/spf13/cobra"
)

func newFlowCmd() *cobra.Command {
	var flowFormat string

	cmd := &cobra.Command{
		Use:   "flow <file.class|file.jar>...",
		Short: "Report the jump conditions and switches found in each method",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := export.New(flowFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			for _, arg := range args {
				err := eachClass(arg, func(name string, data []byte) error {
					cf, err := classfile.Parse(bytes.NewReader(data))
					if err != nil {
						return fmt.Errorf("%s: parse class file: %w", name, err)
					}
					if err := enc.Encode(export.Build(cf)); err != nil {
						return fmt.Errorf("encode %s: %w", flowFormat, err)
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flowFormat, "format", "f", "line", "output format (json, cbor, line)")

	return cmd
}
