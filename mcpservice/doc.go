// Package mcpservice contains the server-side component managers that back
// an MCP server: prompts, resources (including resource templates and a
// filesystem projection), and tools. The managers share a common registry
// contract: concurrent readers, serialized writers, deterministic listing
// order, and not-found errors that tell the calling agent how to recover.
package mcpservice
