// Package mcp provides the Model Context Protocol server implementation.
//
// Implements JSON-RPC 2.0 over stdio for AI agent integration, exposing
// the remember and recall tools backed by the memory use cases.
package mcp
