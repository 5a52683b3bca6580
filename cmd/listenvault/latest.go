package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the timestamp of the newest listen present in the dumps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			scanner, err := buildScanner(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			ts, err := scanner.LatestTimestamp(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%d\t%s\n", ts, time.Unix(ts, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}
}
