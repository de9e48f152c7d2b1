// Package transport implements the byte-level carriers an MCP connection
// speaks JSON-RPC over: a subprocess's stdio pipes, a websocket, or plain
// HTTP request/response. Each implements the same minimal Transport
// contract so the protocol layer above never branches on transport kind.
package transport

import "context"

// Transport moves one JSON-RPC message at a time between the engine and an
// MCP server. Implementations are not expected to multiplex concurrent
// in-flight requests; a Connection serializes its own calls.
type Transport interface {
	// Connect establishes the underlying channel (spawns the subprocess,
	// dials the socket, or no-ops for a stateless HTTP transport).
	Connect(ctx context.Context) error
	// Send writes one JSON-RPC message.
	Send(ctx context.Context, msg []byte) error
	// Receive reads one JSON-RPC message, blocking until one arrives or ctx
	// is cancelled. HTTP transports return the paired response body here.
	Receive(ctx context.Context) ([]byte, error)
	// Close tears the channel down.
	Close() error
}

// Kind identifies which concrete Transport a server endpoint uses.
type Kind string

const (
	KindStdio     Kind = "stdio"
	KindWebSocket Kind = "websocket"
	KindHTTP      Kind = "http"
)

// Config describes how to reach one MCP server, regardless of transport
// kind. Only the fields relevant to Kind are consulted.
type Config struct {
	Kind Kind

	// Stdio
	Command string
	Args    []string
	Env     []string

	// WebSocket / HTTP
	URL        string
	Token      string
	AuthHeader string

	// WebSocket heartbeat policy. The websocket transport does not
	// reconnect by itself.
	HeartbeatInterval int // seconds; 0 disables heartbeats
}

// New builds the Transport described by cfg.
func New(cfg Config) (Transport, error) {
	switch cfg.Kind {
	case KindStdio:
		return newStdioTransport(cfg)
	case KindWebSocket:
		return newWebSocketTransport(cfg)
	case KindHTTP:
		return newHTTPTransport(cfg)
	default:
		return nil, errUnsupportedKind(cfg.Kind)
	}
}

type unsupportedKindError string

func (e unsupportedKindError) Error() string { return "transport: unsupported kind " + string(e) }

func errUnsupportedKind(k Kind) error { return unsupportedKindError(k) }
