package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearpath/clearpath/querylog"
)

var logsCount int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent query log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		if logsCount < 1 || logsCount > 100 {
			return fmt.Errorf("-n must be between 1 and 100, got %d", logsCount)
		}

		writer := querylog.NewWriter(cfg.LogFilePath, logger)
		entries, err := writer.Recent(logsCount)
		if err != nil {
			return err
		}

		for _, e := range entries {
			line, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Println(string(line))
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsCount, "count", "n", 10, "number of entries to show (1-100)")
	rootCmd.AddCommand(logsCmd)
}
