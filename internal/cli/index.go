package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [source_dir]",
	Short: "Rebuild the chunk stream from the document tree",
	Long: `Walks the source tree, extracts and cleans each supported document,
and rewrites the chunk stream. Chunks of unchanged documents are reused
without re-extraction. The previous stream is kept as a backup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	sourceDir := a.cfg.Paths.SourceDir
	if len(args) == 1 {
		sourceDir = args[0]
	}

	prog, err := a.newIndexer().Reindex(cmd.Context(), sourceDir)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Indexed %d/%d documents (%d reused, %d empty, %d failed)\n",
		prog.DocsIndexed, prog.TotalFiles, prog.DocsReused,
		prog.DocsSkippedEmpty, prog.DocsFailed)
	cmd.Printf("Wrote %d chunks to %s\n", prog.ChunksWritten, prog.Output)
	for _, h := range prog.HeavyFiles {
		if h.Status != "" {
			cmd.Printf("  heavy: %s (%.1fs, %s)\n", h.File, h.Sec, h.Status)
		} else {
			cmd.Printf("  heavy: %s (%.1fs)\n", h.File, h.Sec)
		}
	}
	return nil
}
