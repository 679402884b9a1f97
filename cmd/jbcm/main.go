package main

import (
	"fmt"
	"os"

	"github.com/dhamidi/jbcm/config"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var (
	cfg       *config.Config
	verbosity int
	logFile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "jbcm",
		Short:        "A structural decompiler for JVM bytecode",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.FindAndLoad(".")
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg = c

			v := cfg.Log.Verbosity
			if cmd.Flags().Changed("verbose") {
				v = verbosity
			}
			path := cfg.Log.File
			if logFile != "" {
				path = logFile
			}
			if path == "" {
				commonlog.Configure(v, nil)
			} else {
				commonlog.Configure(v, &path)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newDecompileCmd())
	rootCmd.AddCommand(newSwitchesCmd())
	rootCmd.AddCommand(newFlowCmd())
	rootCmd.AddCommand(newLSPCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
