// Package mcp implements a minimal Model Context Protocol client: a
// JSON-RPC-style handshake (initialize/initialized), tool discovery
// (list_tools) and invocation (call_tool) carried over whichever
// transport.Transport a server endpoint speaks.
package mcp

import (
	"encoding/json"

	"github.com/google/uuid"
)

const protocolVersion = "2024-11-05"

// ClientInfo identifies this client to a server during the handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities advertises optional features this client supports.
// Both are left nil: this client neither exposes roots nor sampling.
type ClientCapabilities struct {
	Roots    json.RawMessage `json:"roots,omitempty"`
	Sampling json.RawMessage `json:"sampling,omitempty"`
}

// InitializeParams is the payload of the initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

// ToolDefinition describes one tool a server exposes.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolCallParams is the payload of a call_tool request.
type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// ToolContent is one element of a CallToolResult's content array —
// usually a text block, but the field stays generic since servers are
// free to return other content kinds.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult is what a server returns from call_tool.
type CallToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// request is the on-the-wire JSON-RPC envelope sent for every method.
// method identifies which of Initialize/Initialized/ListTools/CallTool
// this is; params carries the method-specific payload, pre-marshalled.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

const (
	methodInitialize  = "initialize"
	methodInitialized = "notifications/initialized"
	methodListTools   = "tools/list"
	methodCallTool    = "tools/call"
)

func newRequestID() string {
	return uuid.NewString()
}

func buildRequest(method, id string, params interface{}) ([]byte, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: raw})
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// response is the on-the-wire JSON-RPC envelope for a server reply. Exactly
// one of Result/Error is populated, matching JSON-RPC 2.0.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func parseResponse(data []byte) (*response, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type initializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ClientInfo `json:"serverInfo"`
}

type listToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}
