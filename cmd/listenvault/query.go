package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/listenvault/listenvault/internal/scan"
)

func newQueryCmd() *cobra.Command {
	var fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print all listens within an inclusive time window as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			from, err := parseTimestamp(fromStr)
			if err != nil {
				return err
			}
			to, err := parseTimestamp(toStr)
			if err != nil {
				return err
			}

			scanner, err := buildScanner(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			listens, err := scanner.Scan(cmd.Context(), scan.Window{Start: from, End: to})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			for _, listen := range listens {
				if err := enc.Encode(listen); err != nil {
					return err
				}
			}

			log.Info().Int("listens", len(listens)).Msg("query complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "window start (Unix seconds or RFC3339)")
	cmd.Flags().StringVar(&toStr, "to", "", "window end (Unix seconds or RFC3339)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}
