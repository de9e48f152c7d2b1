package taskerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeAndUnwrapToCause(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	err := NewMCPConnectionError("filesystem", base)

	if got, want := err.Code(), "MCP001"; got != want {
		t.Errorf("Code() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("expected errors.Is to see through Unwrap to base")
	}
}

func TestIsRetryableDefaultsToCategory(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindDatabase, true},
		{KindCycleDetected, false},
		{KindValidation, false},
		{KindConfiguration, false},
	}
	for _, c := range cases {
		e := New(c.kind, "test")
		if got := e.IsRetryable(); got != c.want {
			t.Errorf("Kind(%s).IsRetryable() = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestIsRetryableAPIByStatus(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{404, false},
	}
	for _, c := range cases {
		e := NewAPIError(c.status, errors.New("upstream failure"))
		if got := e.IsRetryable(); got != c.want {
			t.Errorf("status %d: IsRetryable() = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestIsRetryableAPIWithoutStatusDefaultsTrue(t *testing.T) {
	e := Wrap(KindAPI, "api call failed", errors.New("timeout"))
	if !e.IsRetryable() {
		t.Error("expected Api error without a recorded status to default retryable")
	}
}

func TestIsRetryableMCPSubCategories(t *testing.T) {
	if !NewMCPConnectionError("srv", errors.New("x")).IsRetryable() {
		t.Error("expected mcp connection error to be retryable")
	}
	if !NewMCPTransportError("srv", errors.New("x")).IsRetryable() {
		t.Error("expected mcp transport error to be retryable")
	}
	if !NewMCPTimeoutError("srv", errors.New("x")).IsRetryable() {
		t.Error("expected mcp timeout error to be retryable")
	}
	if NewMCPProtocolError("srv", errors.New("x")).IsRetryable() {
		t.Error("expected mcp protocol error to not be retryable")
	}
	if NewMCPGenericError("srv", "bad request").IsRetryable() {
		t.Error("expected mcp generic error to not be retryable")
	}
}

func TestWithContextChaining(t *testing.T) {
	e := New(KindRuntime, "boom").
		WithContext("node_id", "n1").
		WithCorrelationID("corr-123").
		WithRetryCount(2)

	if e.Context["node_id"] != "n1" {
		t.Errorf("expected context node_id = n1, got %v", e.Context["node_id"])
	}
	if e.CorrelationID != "corr-123" {
		t.Errorf("expected correlation id corr-123, got %s", e.CorrelationID)
	}
	if e.RetryCount != 2 {
		t.Errorf("expected retry count 2, got %d", e.RetryCount)
	}
}

func TestAsFindsWrappedTaskError(t *testing.T) {
	inner := New(KindNodeNotFound, "missing node")
	outer := fmt.Errorf("wrapper: %w", inner)

	var target *Error
	if !As(outer, &target) {
		t.Fatal("expected As to find the *Error through the wrapper")
	}
	if target.Kind != KindNodeNotFound {
		t.Errorf("expected kind %s, got %s", KindNodeNotFound, target.Kind)
	}
}

func TestUnknownKindDefaults(t *testing.T) {
	k := Kind("NotARealKind")
	if k.Category() != CategorySystem {
		t.Errorf("expected unknown kind category system, got %s", k.Category())
	}
	if k.Code() != "WF000" {
		t.Errorf("expected unknown kind code WF000, got %s", k.Code())
	}
}
