package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/korenlab/lexkb/internal/config"
	"github.com/korenlab/lexkb/internal/configstore"
	"github.com/korenlab/lexkb/internal/embedder"
	"github.com/korenlab/lexkb/internal/indexer"
	"github.com/korenlab/lexkb/internal/searcher"
	"github.com/korenlab/lexkb/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "lexkb"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	cfg    *config.AppConfig
	dir    storage.Dir
	ix     *indexer.Indexer
	engine *searcher.Engine
	emb    embedder.Embedder
	store  *configstore.Store
}

// NewServer creates a new MCP server instance over already constructed
// application components. The caller owns the store and embedder
// lifetimes; Serve closes them on shutdown.
func NewServer(cfg *config.AppConfig, dir storage.Dir, ix *indexer.Indexer, engine *searcher.Engine, emb embedder.Embedder, store *configstore.Store) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		cfg:    cfg,
		dir:    dir,
		ix:     ix,
		engine: engine,
		emb:    emb,
		store:  store,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		if s.store != nil {
			_ = s.store.Close()
		}
		if s.emb != nil {
			_ = s.emb.Close()
		}
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(kbIndexTool(), s.handleIndex)
	s.mcp.AddTool(kbEmbedTool(), s.handleEmbed)
	s.mcp.AddTool(kbSearchTool(), s.handleSearch)
	s.mcp.AddTool(kbStatusTool(), s.handleStatus)
}
