package mcp

import "time"

// Status represents the connection status of an MCP server.
type Status string

const (
	// Disconnected indicates the server is not connected.
	Disconnected Status = "disconnected"

	// Connecting indicates a connection attempt is in progress.
	Connecting Status = "connecting"

	// Connected indicates the server is successfully connected.
	Connected Status = "connected"

	// Failed indicates the connection attempt failed.
	Failed Status = "failed"
)

// State tracks the state of a single MCP server connection.
type State struct {
	Name         string
	Status       Status
	LastError    error
	LastAttempt  time.Time
	SuccessCount int
	FailureCount int
}
