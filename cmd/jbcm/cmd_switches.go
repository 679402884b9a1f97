package main

import (
	"bytes"
	"fmt"

	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/flow"
	"github.com/dhamidi/jbcm/opcode"
	"github.com/spf13/cobra"
)

func newSwitchesCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "switches <file.class|file.jar>...",
		Short: "List the decoded switch tables of each method",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				err := eachClass(arg, func(name string, data []byte) error {
					cf, err := classfile.Parse(bytes.NewReader(data))
					if err != nil {
						return fmt.Errorf("%s: parse class file: %w", name, err)
					}
					for i := range cf.Methods {
						m := &cf.Methods[i]
						code := m.Code()
						if code == nil || (method != "" && m.Name != method) {
							continue
						}
						indices, err := opcode.Indices(code.Bytes)
						if err != nil {
							fmt.Fprintf(out, "%s.%s%s: %v\n", cf.ClassName(), m.Name, m.Descriptor, err)
							continue
						}
						for _, idx := range indices {
							if !opcode.Opcode(code.Bytes[idx]).Is(opcode.Switch) {
								continue
							}
							sw, err := flow.DecodeSwitch(code.Bytes, idx)
							if err != nil {
								return fmt.Errorf("%s.%s: %w", cf.ClassName(), m.Name, err)
							}
							fmt.Fprintf(out, "%s.%s%s\t%s\n", classfile.SourceName(cf.ClassName()), m.Name, m.Descriptor, sw)
							for _, c := range sw.Cases {
								fmt.Fprintf(out, "\t%s\n", c)
							}
							fmt.Fprintf(out, "\tdefault %s\n", sw.Default)
						}
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

	cmd.Flags().StringVarP(&method, "method", "m", "", "only list switches of the named method")

	return cmd
}
