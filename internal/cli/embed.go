package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Build the embedding matrix for the current chunk stream",
	Long: `Embeds every chunk in the stream, reusing vectors from the previous
run for chunks whose identity and text are unchanged under the same
model. Requires a configured embedding provider.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	emb, err := a.newEmbedder()
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	defer func() { _ = emb.Close() }()

	prog, err := a.newIndexer().Embed(cmd.Context(), emb, a.cfg.Embedding.BatchSize)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	cmd.Printf("Embedded %d/%d chunks (%d vectors reused)\n",
		prog.EmbeddedChunks, prog.TotalChunks, prog.ReusedVectors)
	cmd.Printf("Model %s, dimension %d, wrote %s\n",
		prog.Model, prog.Dimension, prog.Output)
	return nil
}
