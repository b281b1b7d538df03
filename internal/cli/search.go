package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/korenlab/lexkb/pkg/types"
)

// snippetChars bounds the text preview per result, counted in runes so
// Hebrew output never breaks mid character.
const snippetChars = 200

var (
	searchTopK    int
	searchJSON    bool
	searchFilters []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Hybrid search over the indexed corpus",
	Long: `Ranks chunks by fused vector and BM25 similarity with metadata
bonuses. Filters restrict results to chunks whose field equals the
given value, for example --filter folder_tag=rulings.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "field=value filter, repeatable")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	filters, err := parseFilterFlags(searchFilters)
	if err != nil {
		return err
	}

	emb, err := a.newEmbedder()
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	defer func() { _ = emb.Close() }()

	results, err := a.newEngine(emb).Search(cmd.Context(), args[0], searchTopK, filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func parseFilterFlags(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(raw))
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, want field=value", f)
		}
		filters[key] = value
	}
	return filters, nil
}

func outputSearchJSON(cmd *cobra.Command, results []types.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []types.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("[%d] %.4f %s #%d\n", i+1, r.Score, r.SourcePath, r.ChunkIndex)
		if r.Title != "" {
			cmd.Printf("    %s\n", r.Title)
		}
		snippet := r.Text
		if runes := []rune(snippet); len(runes) > snippetChars {
			snippet = string(runes[:snippetChars]) + "..."
		}
		cmd.Printf("    %s\n", strings.ReplaceAll(snippet, "\n", " "))
	}
	return nil
}
