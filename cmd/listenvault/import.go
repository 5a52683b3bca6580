package main

import (
	"github.com/spf13/cobra"

	"github.com/listenvault/listenvault/internal/catalog"
	"github.com/listenvault/listenvault/internal/ingest"
)

func newImportCmd() *cobra.Command {
	var filePath string
	var full bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import listens from a JSON-lines file into the dump directory",
		Long: `Import listens from a JSON-lines file into the dump directory.

By default the listens are appended to the incremental partition. With
--full they are written as the next numbered partition instead, which is
only correct when the file is chronologically newer than every existing
numbered partition.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			listens, err := ingest.ReadJSONFile(filePath)
			if err != nil {
				return err
			}

			store, err := buildStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			cat := catalog.New(store, cfg.DumpPrefix)

			importer, err := ingest.NewImporter(store, cat, cfg.DumpPrefix, cfg.StagingDir, log)
			if err != nil {
				return err
			}

			if full {
				name, err := importer.ImportFull(cmd.Context(), listens)
				if err != nil {
					return err
				}
				log.Info().Str("partition", name).Int("listens", len(listens)).Msg("full import complete")
				return nil
			}

			if err := importer.AppendIncremental(cmd.Context(), listens); err != nil {
				return err
			}
			log.Info().Int("listens", len(listens)).Msg("incremental import complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "JSON-lines listen file")
	cmd.Flags().BoolVar(&full, "full", false, "write a new numbered partition instead of appending to the incremental one")
	cmd.MarkFlagRequired("file")

	return cmd
}
