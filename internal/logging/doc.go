// Package logging provides structured JSON logging for docsage with
// size-based file rotation. Logs are written to ~/.docsage/logs/ and,
// outside MCP server mode, mirrored to stderr.
//
// MCP mode must keep stdout/stderr clean for JSON-RPC framing, so
// SetupMCPMode logs to file only.
package logging
