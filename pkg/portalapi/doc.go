// Package portalapi holds the wire types for the freight portal access
// service, plus a small HTTP client for other portal services and tools.
//
// The server handlers encode these types directly, so the package is the
// single source of truth for the JSON contract.
package portalapi
