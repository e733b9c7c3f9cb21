// Package streaminghttp exposes an MCP server over plain HTTP: one JSON-RPC
// message per POST, bearer authentication on every request, and RFC 9728
// protected resource metadata at its well-known path for client discovery.
package streaminghttp
