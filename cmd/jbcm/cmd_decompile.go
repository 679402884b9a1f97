package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dhamidi/jbcm/cache"
	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/decompile"
	"github.com/spf13/cobra"
)

func newDecompileCmd() *cobra.Command {
	var (
		method      string
		indent      string
		endComments bool
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "decompile <file.class|file.jar>...",
		Short: "Decompile class files to Java-like source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cfg.Options()
			if cmd.Flags().Changed("end-comments") {
				opts.EndComments = endComments
			}
			if cmd.Flags().Changed("indent") {
				opts.IndentMark = indent
			}
			out := cmd.OutOrStdout()

			if method != "" {
				for _, arg := range args {
					err := eachClass(arg, func(name string, data []byte) error {
						return decompileMethod(out, name, data, method, opts)
					})
					if err != nil {
						return err
					}
				}
				return nil
			}

			var store *cache.Store
			if path := cfg.CachePath(); path != "" && !noCache {
				s, err := cache.Open(path)
				if err != nil {
					return fmt.Errorf("open cache: %w", err)
				}
				defer s.Close()
				store = s
			}
			for _, arg := range args {
				err := eachClass(arg, func(name string, data []byte) error {
					src, err := store.Decompile(cmd.Context(), opts, data)
					if err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
					fmt.Fprint(out, src)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "only decompile the body of the named method")
	cmd.Flags().StringVar(&indent, "indent", "    ", "indentation written per nesting level")
	cmd.Flags().BoolVar(&endComments, "end-comments", true, "annotate closing braces with the structure they close")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore the configured cache")

	return cmd
}

func decompileMethod(w io.Writer, name string, data []byte, method string, opts decompile.Options) error {
	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: parse class file: %w", name, err)
	}
	d := decompile.New(opts)
	found := false
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name != method {
			continue
		}
		found = true
		in, ok := decompile.MethodOf(cf, m)
		if !ok {
			fmt.Fprintf(w, "// %s%s has no code\n", m.Name, m.Descriptor)
			continue
		}
		res, err := d.Method(in)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(w, "// %s%s\n%s", m.Name, m.Descriptor, res.Source)
	}
	if !found {
		return fmt.Errorf("%s: no method named %s", name, method)
	}
	return nil
}
