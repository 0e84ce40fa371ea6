package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest PDF files or directories into the vector index",
	Long: `Ingest runs the full pipeline (extract, chunk, embed, index, persist)
for each given PDF. Directory arguments are expanded to their *.pdf
files. With no arguments the configured PDF directory is ingested.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		engine, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			args = []string{cfg.PDFDir}
		}
		paths, err := expandPDFs(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no PDF files found in %s", strings.Join(args, ", "))
		}

		ctx := context.Background()
		failures := 0
		for _, path := range paths {
			records, err := engine.Ingest(ctx, path)
			if err != nil {
				failures++
				logger.Error().Err(err).Str("file", filepath.Base(path)).Msg("ingest failed")
				continue
			}
			fmt.Printf("%s: %d chunks\n", filepath.Base(path), len(records))
		}

		fmt.Printf("done: %d/%d files ingested, %d chunks total\n",
			len(paths)-failures, len(paths), engine.TotalChunks())
		if failures > 0 {
			return fmt.Errorf("%d of %d files failed", failures, len(paths))
		}
		return nil
	},
}

// expandPDFs resolves files and directories into a flat list of PDFs.
func expandPDFs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.pdf"))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
