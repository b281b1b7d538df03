package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// kbIndexTool returns the tool definition for kb_index
func kbIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "kb_index",
		Description: "Rebuild the chunk stream from the document source tree, reusing chunks of unchanged documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source_dir": map[string]interface{}{
					"type":        "string",
					"description": "Document tree to index; defaults to the configured source directory",
				},
			},
		},
	}
}

// kbEmbedTool returns the tool definition for kb_embed
func kbEmbedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "kb_embed",
		Description: "Build the embedding matrix for the current chunk stream, reusing vectors of unchanged chunks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// kbSearchTool returns the tool definition for kb_search
func kbSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "kb_search",
		Description: "Hybrid search over the indexed corpus (vector + BM25 fusion with metadata bonuses)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query in Hebrew or English",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Exact, case-insensitive equality filters on record fields",
					"properties": map[string]interface{}{
						"folder_tag": map[string]interface{}{
							"type":        "string",
							"description": "Top-level folder of the source document",
						},
						"source_path": map[string]interface{}{
							"type":        "string",
							"description": "Relative path of the source document",
						},
						"doc_id": map[string]interface{}{
							"type":        "string",
							"description": "Stable document identifier",
						},
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// kbStatusTool returns the tool definition for kb_status
func kbStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "kb_status",
		Description: "Report index and embedding job status plus the loaded corpus size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
