package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearpath/clearpath/vectorstore"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the persisted vector index and metadata sidecar",
	Long: `Validate loads the persisted index pair and reports its state.
It fails when the files are corrupt, the dimension is wrong, or the
sidecar record count does not match the index vector count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}

		store := vectorstore.New(cfg.IndexDir, cfg.EmbeddingDim,
			logger.With().Str("component", "vectorstore").Logger())
		if err := store.Load(); err != nil {
			return fmt.Errorf("index validation failed: %w", err)
		}

		fmt.Printf("index dir:    %s\n", cfg.IndexDir)
		fmt.Printf("dimension:    %d\n", store.Dimension())
		fmt.Printf("total chunks: %d\n", store.TotalChunks())
		fmt.Println("index and sidecar are consistent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
