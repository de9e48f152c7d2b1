package taskerr

import "fmt"

// NewCycleDetectedError reports a workflow graph containing a cycle among
// the named nodes.
func NewCycleDetectedError(cycle []string) *Error {
	return New(KindCycleDetected, fmt.Sprintf("cycle detected in workflow graph: %v", cycle)).
		WithContext("cycle", cycle)
}

// NewUnreachableNodesError reports nodes that cannot be reached from the
// workflow's start node.
func NewUnreachableNodesError(nodes []string) *Error {
	return New(KindUnreachableNodes, fmt.Sprintf("unreachable nodes: %v", nodes)).
		WithContext("nodes", nodes)
}

// NewInvalidRouterError reports a router node with a malformed connection set.
func NewInvalidRouterError(nodeID, reason string) *Error {
	return New(KindInvalidRouter, fmt.Sprintf("invalid router node %q: %s", nodeID, reason)).
		WithContext("node_id", nodeID)
}

// NewNodeNotFoundError reports a reference to a node type not present in
// the registry.
func NewNodeNotFoundError(nodeType string) *Error {
	return New(KindNodeNotFound, fmt.Sprintf("node type not registered: %s", nodeType)).
		WithContext("node_type", nodeType)
}

// NewNodeProcessingError wraps a failure raised by a node's own Process call.
func NewNodeProcessingError(nodeID string, cause error) *Error {
	return Wrap(KindNodeProcessing, fmt.Sprintf("node %q processing failed", nodeID), cause).
		WithContext("node_id", nodeID)
}

// NewSerializationError wraps a failure marshaling task context data.
func NewSerializationError(cause error) *Error {
	return Wrap(KindSerialization, "failed to serialize task context", cause)
}

// NewDeserializationError wraps a failure unmarshaling task context data.
func NewDeserializationError(cause error) *Error {
	return Wrap(KindDeserialization, "failed to deserialize task context", cause)
}

// NewDatabaseError wraps a storage-layer failure.
func NewDatabaseError(op string, cause error) *Error {
	return Wrap(KindDatabase, fmt.Sprintf("database operation %q failed", op), cause).
		WithContext("op", op)
}

// NewWorkflowTypeMismatchError reports a value read from task context whose
// dynamic type didn't match the requested one.
func NewWorkflowTypeMismatchError(path, expected, got string) *Error {
	return New(KindWorkflowTypeMismatch, fmt.Sprintf("type mismatch at %q: expected %s, got %s", path, expected, got)).
		WithContext("path", path).
		WithContext("expected", expected).
		WithContext("got", got)
}

// NewAPIError wraps a failure from an external HTTP API, recording its
// status code for retryability.
func NewAPIError(status int, cause error) *Error {
	e := Wrap(KindAPI, fmt.Sprintf("api call failed with status %d", status), cause)
	e.WithAPIStatus(status)
	return e
}

// NewRuntimeError wraps an unexpected internal failure that should page
// an operator rather than be silently retried.
func NewRuntimeError(message string, cause error) *Error {
	return Wrap(KindRuntime, message, cause)
}

// NewMCPConnectionError wraps a failure establishing or maintaining an MCP
// transport connection. Retryable.
func NewMCPConnectionError(server string, cause error) *Error {
	e := Wrap(KindMCPConnection, fmt.Sprintf("mcp connection to %q failed", server), cause)
	e.WithContext("server", server)
	return e.WithMCPSubCategory(MCPSubConnection)
}

// NewMCPProtocolError wraps a failure from a malformed or unexpected MCP
// message exchange. Not retryable.
func NewMCPProtocolError(server string, cause error) *Error {
	e := Wrap(KindMCPProtocol, fmt.Sprintf("mcp protocol error from %q", server), cause)
	e.WithContext("server", server)
	return e.WithMCPSubCategory(MCPSubProtocol)
}

// NewMCPTransportError wraps a transport-level I/O failure (closed pipe,
// dropped socket). Retryable.
func NewMCPTransportError(server string, cause error) *Error {
	e := Wrap(KindMCPTransport, fmt.Sprintf("mcp transport error with %q", server), cause)
	e.WithContext("server", server)
	return e.WithMCPSubCategory(MCPSubTransport)
}

// NewMCPTimeoutError wraps an MCP call that exceeded its deadline.
// Retryable.
func NewMCPTimeoutError(server string, cause error) *Error {
	e := Wrap(KindMCPGeneric, fmt.Sprintf("mcp call to %q timed out", server), cause)
	e.WithContext("server", server)
	return e.WithMCPSubCategory(MCPSubTimeout)
}

// NewMCPGenericError wraps any other MCP failure not covered by the above.
// Not retryable.
func NewMCPGenericError(server, message string) *Error {
	e := New(KindMCPGeneric, fmt.Sprintf("mcp error from %q: %s", server, message))
	e.WithContext("server", server)
	return e.WithMCPSubCategory(MCPSubGeneric)
}

// NewValidationError reports a schema or input validation failure.
func NewValidationError(field, reason string) *Error {
	return New(KindValidation, fmt.Sprintf("validation failed for %q: %s", field, reason)).
		WithContext("field", field)
}

// NewRegistryError reports a failure registering or looking up a node type.
func NewRegistryError(message string) *Error {
	return New(KindRegistry, message)
}

// NewInvalidStepTypeError reports a workflow step referencing an unknown
// step/node type string.
func NewInvalidStepTypeError(stepType string) *Error {
	return New(KindInvalidStepType, fmt.Sprintf("invalid step type: %s", stepType)).
		WithContext("step_type", stepType)
}

// NewInvalidInputError reports a required input missing from task context.
func NewInvalidInputError(field string) *Error {
	return New(KindInvalidInput, fmt.Sprintf("invalid or missing input: %s", field)).
		WithContext("field", field)
}

// NewCrossSystemError wraps a failure crossing a system boundary that
// doesn't fit the MCP or Api kinds (e.g. a message broker, an object store).
func NewCrossSystemError(system string, cause error) *Error {
	return Wrap(KindCrossSystem, fmt.Sprintf("cross-system call to %q failed", system), cause).
		WithContext("system", system)
}

// NewConfigurationError reports a misconfigured field, naming what was
// expected against what was found.
func NewConfigurationError(field, expected, got string) *Error {
	return New(KindConfiguration, fmt.Sprintf("configuration error for %q: expected %s, got %s", field, expected, got)).
		WithContext("field", field).
		WithContext("expected", expected).
		WithContext("got", got)
}
