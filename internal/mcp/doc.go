// Package mcp exposes the corpus operations as MCP tools over stdio.
//
// Four tools are served: kb_index rebuilds the chunk stream from the
// source tree, kb_embed builds the aligned embedding matrix, kb_search
// answers hybrid-ranked queries, and kb_status reports both jobs'
// status artifacts plus the loaded corpus size. Stdout carries the MCP
// protocol; all logging goes to stderr.
package mcp
