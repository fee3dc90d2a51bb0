package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"patentrag/internal/app"
	"patentrag/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load the persisted index, building it from the corpus if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		rebuild, _ := cmd.Flags().GetBool("rebuild")
		start := time.Now()
		store, err := app.OpenIndex(cmd.Context(), currentConfig, logger, rebuild)
		if err != nil {
			return err
		}
		defer store.Close()

		format, _ := index.ParseFormat(currentConfig.Index.Format)
		fmt.Fprintf(cmd.OutOrStdout(), "%d entries (%s, dim %d) at %s in %s\n",
			store.Len(), store.EmbedderName(), store.Dimension(),
			format.Path(currentConfig.Index.PersistDir), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	indexCmd.Flags().Bool("rebuild", false, "ignore the persisted index and rebuild from the corpus")
}
