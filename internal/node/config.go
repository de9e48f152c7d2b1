package node

import (
	"time"

	"wfengine/internal/taskerr"
)

// Config is a node's static configuration within a workflow: its outgoing
// connections, routing/parallel-fan-out flags, and its reliability envelope
// (timeout, retry, concurrency, priority). Mirrors the fields of the
// system's original per-node config one for one, adapted to Go's duration
// and zero-value idioms in place of Option<T>.
type Config struct {
	NodeType                Type
	Connections             []Type
	IsRouter                bool
	Description             string
	ParallelNodes           []Type
	Timeout                 time.Duration
	RetryAttempts           int
	RetryDelay              time.Duration
	RequiredInputs          []string
	Metadata                map[string]any
	MaxConcurrentExecutions int
	Priority                int
	Tags                    []string
}

// NewConfig builds a Config for nodeType with all optional fields unset.
func NewConfig(nodeType Type) *Config {
	return &Config{
		NodeType: nodeType,
		Metadata: make(map[string]any),
	}
}

func (c *Config) WithConnections(connections ...Type) *Config {
	c.Connections = connections
	return c
}

func (c *Config) WithRouter(isRouter bool) *Config {
	c.IsRouter = isRouter
	return c
}

func (c *Config) WithDescription(description string) *Config {
	c.Description = description
	return c
}

func (c *Config) WithParallelNodes(nodes ...Type) *Config {
	c.ParallelNodes = nodes
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

func (c *Config) WithRetry(attempts int, delay time.Duration) *Config {
	c.RetryAttempts = attempts
	c.RetryDelay = delay
	return c
}

func (c *Config) WithRequiredInputs(inputs ...string) *Config {
	c.RequiredInputs = inputs
	return c
}

func (c *Config) WithMetadata(key string, value any) *Config {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

func (c *Config) WithPriority(priority int) *Config {
	c.Priority = priority
	return c
}

func (c *Config) WithMaxConcurrentExecutions(max int) *Config {
	c.MaxConcurrentExecutions = max
	return c
}

func (c *Config) WithTags(tags ...string) *Config {
	c.Tags = tags
	return c
}

// Validate checks the config's internal consistency: a non-router node may
// have at most one outgoing connection, a configured timeout/retry/priority
// /concurrency must be positive, and a retry attempt count requires a retry
// delay alongside it.
func (c *Config) Validate() error {
	if !c.IsRouter && len(c.Connections) > 1 {
		return taskerr.NewInvalidRouterError(string(c.NodeType), "non-router node has more than one outgoing connection")
	}
	if c.IsRouter && len(c.Connections) < 2 {
		return taskerr.NewInvalidRouterError(string(c.NodeType), "router node has fewer than two outgoing connections")
	}

	if c.Timeout < 0 {
		return taskerr.NewConfigurationError("timeout", "positive duration", "negative")
	}
	if c.Timeout > 0 && c.Timeout < time.Millisecond {
		return taskerr.NewConfigurationError("timeout", "duration >= 1ms", c.Timeout.String())
	}

	if c.RetryAttempts > 0 && c.RetryDelay <= 0 {
		return taskerr.NewConfigurationError("retry_delay", "positive duration when retry_attempts is set", "unset")
	}
	if c.RetryAttempts < 0 {
		return taskerr.NewConfigurationError("retry_attempts", "non-negative", "negative")
	}

	if c.Priority < 0 {
		return taskerr.NewConfigurationError("priority", "non-negative", "negative")
	}

	if c.MaxConcurrentExecutions < 0 {
		return taskerr.NewConfigurationError("max_concurrent_executions", "non-negative", "negative")
	}

	return nil
}
