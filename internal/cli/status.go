package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/korenlab/lexkb/internal/indexer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and embedding job status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	report := map[string]interface{}{
		"index_dir":  a.dir.Path(),
		"chunks":     artifactLine(a.dir.ChunksPath()),
		"embeddings": artifactLine(a.dir.EmbeddingsPath()),
		"index_job":  indexer.LoadStatus[indexer.IndexProgress](a.dir.IndexStatusPath()),
		"embed_job":  indexer.LoadStatus[indexer.EmbedProgress](a.dir.EmbedStatusPath()),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func artifactLine(path string) map[string]interface{} {
	info, err := os.Stat(path)
	if err != nil {
		return map[string]interface{}{"present": false, "path": path}
	}
	return map[string]interface{}{
		"present":    true,
		"path":       path,
		"size_bytes": info.Size(),
		"mtime":      info.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
