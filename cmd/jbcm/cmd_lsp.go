package main

import (
	"fmt"

	"github.com/dhamidi/jbcm/cache"
	"github.com/dhamidi/jbcm/lsp"
	"github.com/spf13/cobra"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var store *cache.Store
			if path := cfg.CachePath(); path != "" {
				s, err := cache.Open(path)
				if err != nil {
					return fmt.Errorf("open cache: %w", err)
				}
				store = s
			}
			server := lsp.NewServer(version, cfg, store)
			return server.RunStdio()
		},
	}
}
