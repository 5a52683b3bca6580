package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenvault/listenvault/internal/catalog"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List dump partitions in scan order, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := buildStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			refs, err := catalog.New(store, cfg.DumpPrefix).List(cmd.Context())
			if err != nil {
				return err
			}

			for _, ref := range refs {
				kind := "full"
				if ref.Incremental {
					kind = "incremental"
				}
				fmt.Printf("%s\t%s\n", kind, ref.Name)
			}
			return nil
		},
	}
}
