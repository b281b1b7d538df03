package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/korenlab/lexkb/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the corpus tools over MCP on stdio",
	Long: `Starts an MCP server on stdio exposing kb_index, kb_embed, kb_search
and kb_status. Stdout carries the protocol; logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	emb, err := a.newEmbedder()
	if err != nil {
		a.close()
		return fmt.Errorf("embedding provider: %w", err)
	}

	log.SetOutput(os.Stderr)
	log.Printf("%s v%s serving MCP on stdio", mcp.ServerName, mcp.ServerVersion)

	server := mcp.NewServer(a.cfg, a.dir, a.newIndexer(), a.newEngine(emb), emb, a.store)
	return server.Serve(cmd.Context())
}
