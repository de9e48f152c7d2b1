package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"wfengine/internal/mcp/transport"
	"wfengine/internal/taskerr"
)

// Connection is one handshake-and-call session against a single MCP
// server. Each request/response pair holds an internal lock, so goroutines
// sharing one Connection (as callers of mcp/pool do) take turns on the
// transport rather than interleaving messages.
type Connection struct {
	serverName string
	tr         transport.Transport

	// callMu serializes send/receive pairs in roundTrip.
	callMu sync.Mutex

	mu            sync.Mutex
	isConnected   bool
	isInitialized bool
}

// NewConnection wraps tr for serverName. tr is not yet connected.
func NewConnection(serverName string, tr transport.Transport) *Connection {
	return &Connection{serverName: serverName, tr: tr}
}

// IsConnected reports whether Connect succeeded and Disconnect hasn't been
// called since.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// IsInitialized reports whether the handshake has completed.
func (c *Connection) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isInitialized
}

// Connect opens the underlying transport.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.tr.Connect(ctx); err != nil {
		return taskerr.NewMCPConnectionError(c.serverName, err)
	}
	c.mu.Lock()
	c.isConnected = true
	c.mu.Unlock()
	return nil
}

// Initialize performs the initialize/initialized handshake. Must be
// called once, after Connect and before ListTools or CallTool.
func (c *Connection) Initialize(ctx context.Context, clientName, clientVersion string) error {
	if !c.IsConnected() {
		return taskerr.NewMCPConnectionError(c.serverName, fmt.Errorf("not connected"))
	}

	id := newRequestID()
	payload, err := buildRequest(methodInitialize, id, InitializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    ClientCapabilities{},
		ClientInfo:      ClientInfo{Name: clientName, Version: clientVersion},
	})
	if err != nil {
		return taskerr.NewSerializationError(err)
	}

	resp, err := c.roundTrip(ctx, payload)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return taskerr.NewMCPGenericError(c.serverName, fmt.Sprintf("initialize failed: %s", resp.Error.Message))
	}
	var result initializeResult
	if err := unmarshalResult(resp.Result, &result); err != nil {
		return taskerr.NewMCPProtocolError(c.serverName, fmt.Errorf("unparseable InitializeResult: %w", err))
	}

	notify, err := buildRequest(methodInitialized, "", nil)
	if err != nil {
		return taskerr.NewSerializationError(err)
	}
	if err := c.tr.Send(ctx, notify); err != nil {
		return taskerr.NewMCPTransportError(c.serverName, err)
	}

	c.mu.Lock()
	c.isInitialized = true
	c.mu.Unlock()
	return nil
}

// ListTools returns the tools the server advertises.
func (c *Connection) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	if !c.IsInitialized() {
		return nil, taskerr.NewMCPGenericError(c.serverName, "list_tools: client not initialized")
	}

	id := newRequestID()
	payload, err := buildRequest(methodListTools, id, nil)
	if err != nil {
		return nil, taskerr.NewSerializationError(err)
	}

	resp, err := c.roundTrip(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, taskerr.NewMCPGenericError(c.serverName, fmt.Sprintf("list_tools failed: %s", resp.Error.Message))
	}
	var result listToolsResult
	if err := unmarshalResult(resp.Result, &result); err != nil {
		return nil, taskerr.NewMCPProtocolError(c.serverName, fmt.Errorf("unparseable ListToolsResult: %w", err))
	}
	return result.Tools, nil
}

// CallTool invokes name with arguments and returns the server's result.
func (c *Connection) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*CallToolResult, error) {
	if !c.IsInitialized() {
		return nil, taskerr.NewMCPGenericError(c.serverName, "call_tool:"+name+": client not initialized")
	}

	id := newRequestID()
	payload, err := buildRequest(methodCallTool, id, ToolCallParams{Name: name, Arguments: arguments})
	if err != nil {
		return nil, taskerr.NewSerializationError(err)
	}

	resp, err := c.roundTrip(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, taskerr.NewMCPGenericError(c.serverName, fmt.Sprintf("tool call %q failed: %s", name, resp.Error.Message))
	}
	var result CallToolResult
	if err := unmarshalResult(resp.Result, &result); err != nil {
		return nil, taskerr.NewMCPProtocolError(c.serverName, fmt.Errorf("unparseable CallToolResult: %w", err))
	}
	return &result, nil
}

// Disconnect closes the underlying transport. The Connection cannot be
// reused afterward; callers needing a fresh session build a new one.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	c.isConnected = false
	c.isInitialized = false
	c.mu.Unlock()
	return c.tr.Close()
}

// roundTrip sends payload and returns the next message the transport
// delivers as its response, holding callMu for the whole pair and
// classifying transport vs. timeout failures the way the rest of the
// MCP layer expects. The response id is not compared with the request id.
func (c *Connection) roundTrip(ctx context.Context, payload []byte) (*response, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	if err := c.tr.Send(ctx, payload); err != nil {
		return nil, classifySendErr(c.serverName, ctx, err)
	}
	data, err := c.tr.Receive(ctx)
	if err != nil {
		return nil, classifySendErr(c.serverName, ctx, err)
	}
	resp, err := parseResponse(data)
	if err != nil {
		return nil, taskerr.NewDeserializationError(err)
	}
	return resp, nil
}

func classifySendErr(serverName string, ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return taskerr.NewMCPTimeoutError(serverName, ctx.Err())
	}
	return taskerr.NewMCPTransportError(serverName, err)
}

func unmarshalResult(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty result")
	}
	return json.Unmarshal(raw, v)
}
