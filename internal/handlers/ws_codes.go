// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the table handler.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Token expired or was revoked while connected.
	TableClosedError      = 3004 // The table was closed or disposed.
)
