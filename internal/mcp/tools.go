package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/korenlab/lexkb/internal/indexer"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleIndex handles the kb_index tool invocation
func (s *Server) handleIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	sourceDir := getStringDefault(args, "source_dir", s.cfg.Paths.SourceDir)
	if sourceDir == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source_dir is required and no default is configured", map[string]interface{}{
			"param": "source_dir",
		})
	}
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return nil, newMCPError(ErrorCodeInvalidParams, "source_dir is not a readable directory", map[string]interface{}{
			"param": "source_dir",
			"value": sourceDir,
		})
	}

	prog, err := s.ix.Reindex(ctx, sourceDir)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"ok":                 true,
		"source_dir":         sourceDir,
		"total_files":        prog.TotalFiles,
		"docs_indexed":       prog.DocsIndexed,
		"docs_reused":        prog.DocsReused,
		"docs_skipped_empty": prog.DocsSkippedEmpty,
		"docs_failed":        prog.DocsFailed,
		"chunks_written":     prog.ChunksWritten,
		"output":             prog.Output,
	}
	if len(prog.HeavyFiles) > 0 {
		response["heavy_files"] = prog.HeavyFiles
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEmbed handles the kb_embed tool invocation
func (s *Server) handleEmbed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prog, err := s.ix.Embed(ctx, s.emb, s.cfg.Embedding.BatchSize)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "embedding failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"ok":              true,
		"total_chunks":    prog.TotalChunks,
		"embedded_chunks": prog.EmbeddedChunks,
		"reused_vectors":  prog.ReusedVectors,
		"model":           prog.Model,
		"dimension":       prog.Dimension,
		"output":          prog.Output,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the kb_search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", s.cfg.Search.TopK)
	if topK < 1 || topK > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	filters, err := parseFilters(args["filters"])
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid filters", map[string]interface{}{
			"param":  "filters",
			"reason": err.Error(),
		})
	}

	results, err := s.engine.Search(ctx, query, topK, filters)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]interface{}{
			"score":       r.Score,
			"base_score":  r.BaseScore,
			"source_path": r.SourcePath,
			"title":       r.Title,
			"chunk_index": r.ChunkIndex,
			"text":        r.Text,
			"doc_id":      r.DocID,
		})
	}
	response := map[string]interface{}{
		"ok":      true,
		"query":   query,
		"count":   len(results),
		"results": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStatus handles the kb_status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	indexStatus := indexer.LoadStatus[indexer.IndexProgress](s.dir.IndexStatusPath())
	embedStatus := indexer.LoadStatus[indexer.EmbedProgress](s.dir.EmbedStatusPath())

	response := map[string]interface{}{
		"ok":           true,
		"index_dir":    s.dir.Path(),
		"chunks":       artifactInfo(s.dir.ChunksPath()),
		"embeddings":   artifactInfo(s.dir.EmbeddingsPath()),
		"loaded_rows":  s.engine.Rows(ctx),
		"index_job":    indexStatus,
		"embed_job":    embedStatus,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// artifactInfo reports presence and size of one on-disk artifact
func artifactInfo(path string) map[string]interface{} {
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

// parseFilters converts the filters argument to exact-match string pairs
func parseFilters(raw interface{}) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("filters must be an object of string values")
	}
	filters := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("filter %q must be a string", k)
		}
		if s == "" {
			continue
		}
		filters[k] = s
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return filters, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
