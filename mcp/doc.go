// Package mcp contains the protocol data types and method constants shared
// across the transport and the component managers. It mirrors the wire
// representation of the Model Context Protocol while keeping the surface
// Go-friendly (exported structs with json tags, string constants for method
// names and enumerations).
//
// The package is intentionally free of transport logic: the HTTP handler
// imports these types but implements its own framing and authentication.
// Likewise the manager packages (mcpservice) construct responses using these
// concrete types and hand them back for JSON-RPC serialization.
package mcp
