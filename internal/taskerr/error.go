package taskerr

import (
	"fmt"
	"time"
)

// MCPSubCategory refines retryability for the four MCP error kinds, per
// spec: only Connection/Transport/Timeout sub-categories are retryable.
type MCPSubCategory string

const (
	MCPSubConnection MCPSubCategory = "connection"
	MCPSubTransport  MCPSubCategory = "transport"
	MCPSubTimeout    MCPSubCategory = "timeout"
	MCPSubProtocol   MCPSubCategory = "protocol"
	MCPSubGeneric    MCPSubCategory = "generic"
)

// Error is the structured, chainable error type every engine and MCP
// collaborator returns. It carries enough structured context that
// observability can key off fields without parsing the message string.
type Error struct {
	Kind          Kind
	Message       string
	Cause         error
	Context       map[string]any
	CorrelationID string
	RetryCount    int
	Timestamp     time.Time

	// mcpSub is set only for McpConnection/McpProtocol/McpTransport/McpGeneric
	// kinds; it refines retryability beyond the kind's default category.
	mcpSub MCPSubCategory
	// apiStatus is set only for Api-kind errors.
	apiStatus int
	hasStatus bool
}

// New creates an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Context:   make(map[string]any),
		Timestamp: time.Now(),
	}
}

// Wrap creates an Error of the given kind chaining an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Kind.Code(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the error's category.
func (e *Error) Category() Category {
	return e.Kind.Category()
}

// Severity returns the error's severity.
func (e *Error) Severity() Severity {
	return e.Kind.Severity()
}

// Code returns the error's stable short code.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// IsRetryable applies spec §4.1's retryability rules: Transient category is
// retryable by default; MCP kinds are retryable only for their
// Connection/Transport/Timeout sub-categories; Api kinds are retryable for
// 408/429/5xx or when no status was recorded; Validation/Runtime/User-category
// kinds are never retryable.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindMCPConnection, KindMCPProtocol, KindMCPTransport, KindMCPGeneric:
		switch e.mcpSub {
		case MCPSubConnection, MCPSubTransport, MCPSubTimeout:
			return true
		default:
			return false
		}
	case KindAPI:
		if !e.hasStatus {
			return true
		}
		return e.apiStatus == 408 || e.apiStatus == 429 || e.apiStatus >= 500
	case KindValidation, KindRuntime:
		return false
	}
	if e.Kind.Category() == CategoryUser {
		return false
	}
	return e.Kind.Category() == CategoryTransient
}

// WithContext attaches a structured context field and returns the receiver
// for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCorrelationID stamps a correlation id and returns the receiver.
func (e *Error) WithCorrelationID(id string) *Error {
	e.CorrelationID = id
	return e
}

// WithRetryCount stamps the current retry attempt count.
func (e *Error) WithRetryCount(n int) *Error {
	e.RetryCount = n
	return e
}

// WithMCPSubCategory sets the MCP sub-category used by IsRetryable.
func (e *Error) WithMCPSubCategory(sub MCPSubCategory) *Error {
	e.mcpSub = sub
	return e
}

// WithAPIStatus records the HTTP status code an Api-kind error observed.
func (e *Error) WithAPIStatus(status int) *Error {
	e.apiStatus = status
	e.hasStatus = true
	return e
}

// As reports whether err is (or wraps) a *Error, matching the standard
// library errors.As contract so callers can do:
//
//	var terr *taskerr.Error
//	if errors.As(err, &terr) { ... }
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
