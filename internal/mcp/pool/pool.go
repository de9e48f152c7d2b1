// Package pool manages a set of MCP server connections: lazy reconnect on
// first use, singleflight-coalesced reconnection so concurrent callers
// don't dogpile a flaky server, a per-server circuit breaker that fast-fails
// once a server has shown it's down, and stale-marking so a caller can force
// the next acquire to reconnect without tearing down in-flight users.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wfengine/internal/mcp"
	"wfengine/internal/mcp/transport"
	"wfengine/internal/metrics"
	"wfengine/internal/resilience"
	"wfengine/internal/taskerr"
)

// serverEntry holds everything the pool knows about one registered server.
type serverEntry struct {
	name          string
	transportCfg  transport.Config
	clientName    string
	clientVersion string
}

// Pool owns zero or more live Connections, one per registered server name,
// reconnecting lazily and coalescing concurrent reconnect attempts.
type Pool struct {
	mu          sync.RWMutex
	servers     map[string]serverEntry
	connections map[string]*mcp.Connection
	stale       map[string]bool
	breakers    map[string]*resilience.CircuitBreaker

	connectedAt map[string]time.Time
	connTTL     time.Duration

	group singleflight.Group

	breakerConfig      resilience.CircuitBreakerConfig
	limiter            *resilience.RateLimiter
	healthCheckTimeout time.Duration
}

// Config tunes pool-wide policy.
type Config struct {
	// ConnectionTTL, if nonzero, is the age past which
	// CleanupExpiredConnections marks a connection stale, so the next
	// GetConnection for that server reconnects.
	ConnectionTTL time.Duration
	// CircuitBreaker overrides the breaker applied to each server's
	// reconnect attempts. Zero value uses sensible defaults.
	CircuitBreaker resilience.CircuitBreakerConfig
	// RateLimit caps how often each server name can be acquired, one token
	// bucket per server. Unset fields take the rate limiter's defaults
	// (burst 10, one token per second), so a limit always applies.
	RateLimit resilience.RateLimiterConfig
	// HealthCheckTimeout bounds each server's HealthCheck probe. Defaults
	// to 5s.
	HealthCheckTimeout time.Duration
}

// New builds an empty Pool. Register servers with RegisterServer before
// calling GetConnection.
func New(cfg Config) *Pool {
	bc := cfg.CircuitBreaker
	if bc.FailureThreshold == 0 {
		bc.FailureThreshold = 3
	}
	if bc.Timeout == 0 {
		bc.Timeout = 30 * time.Second
	}
	if bc.SuccessThreshold == 0 {
		bc.SuccessThreshold = 1
	}
	healthCheckTimeout := cfg.HealthCheckTimeout
	if healthCheckTimeout <= 0 {
		healthCheckTimeout = 5 * time.Second
	}

	return &Pool{
		servers:            make(map[string]serverEntry),
		connections:        make(map[string]*mcp.Connection),
		stale:              make(map[string]bool),
		breakers:           make(map[string]*resilience.CircuitBreaker),
		connectedAt:        make(map[string]time.Time),
		connTTL:            cfg.ConnectionTTL,
		breakerConfig:      bc,
		limiter:            resilience.NewRateLimiter(cfg.RateLimit),
		healthCheckTimeout: healthCheckTimeout,
	}
}

// RegisterServer records how to reach a server under name. It does not
// connect; the first GetConnection call does that lazily.
func (p *Pool) RegisterServer(name string, transportCfg transport.Config, clientName, clientVersion string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.servers[name] = serverEntry{
		name:          name,
		transportCfg:  transportCfg,
		clientName:    clientName,
		clientVersion: clientVersion,
	}
	p.breakers[name] = resilience.NewCircuitBreaker(p.breakerConfig)
}

// GetConnection returns a live, initialized Connection for name, reconnecting
// if there isn't one yet or the existing one was marked stale. Concurrent
// callers asking for the same name while a reconnect is underway share its
// result instead of each dialing their own.
func (p *Pool) GetConnection(ctx context.Context, name string) (*mcp.Connection, error) {
	p.mu.RLock()
	entry, registered := p.servers[name]
	conn, hasConn := p.connections[name]
	isStale := p.stale[name]
	breaker := p.breakers[name]
	p.mu.RUnlock()

	if !registered {
		return nil, taskerr.NewRegistryError(fmt.Sprintf("mcp server not registered: %s", name))
	}
	if !p.limiter.Allow(name) {
		metrics.RateLimitRejections.WithLabelValues(name).Inc()
		return nil, resilience.ErrRateLimited
	}
	if breaker != nil && breaker.State() == resilience.CircuitOpen {
		return nil, resilience.ErrCircuitOpen
	}
	if hasConn && !isStale && conn.IsConnected() {
		return conn, nil
	}

	val, err, _ := p.group.Do(name, func() (interface{}, error) {
		p.mu.RLock()
		conn, hasConn := p.connections[name]
		isStale := p.stale[name]
		p.mu.RUnlock()
		if hasConn && !isStale && conn.IsConnected() {
			return conn, nil
		}

		var result *mcp.Connection
		err := breaker.Do(ctx, func(callCtx context.Context) error {
			conn, err := p.reconnect(callCtx, entry)
			if err != nil {
				return err
			}
			result = conn
			return nil
		})
		return result, err
	})
	if err != nil {
		return nil, err
	}
	return val.(*mcp.Connection), nil
}

// reconnect tears down any existing connection for entry.name and
// establishes a fresh one: connect the transport, run the handshake, and
// publish the result under the pool's lock.
func (p *Pool) reconnect(ctx context.Context, entry serverEntry) (*mcp.Connection, error) {
	p.mu.Lock()
	if old, ok := p.connections[entry.name]; ok {
		_ = old.Disconnect()
	}
	delete(p.connections, entry.name)
	p.mu.Unlock()

	tr, err := transport.New(entry.transportCfg)
	if err != nil {
		metrics.MCPConnectionState.WithLabelValues(entry.name).Set(0)
		return nil, taskerr.NewMCPConnectionError(entry.name, err)
	}
	conn := mcp.NewConnection(entry.name, tr)

	if err := conn.Connect(ctx); err != nil {
		metrics.MCPConnectionState.WithLabelValues(entry.name).Set(0)
		return nil, err
	}
	if err := conn.Initialize(ctx, entry.clientName, entry.clientVersion); err != nil {
		metrics.MCPConnectionState.WithLabelValues(entry.name).Set(0)
		return nil, err
	}

	p.mu.Lock()
	p.connections[entry.name] = conn
	p.stale[entry.name] = false
	p.connectedAt[entry.name] = time.Now()
	p.mu.Unlock()

	metrics.MCPConnectionState.WithLabelValues(entry.name).Set(1)
	return conn, nil
}

// ForceReconnect marks name's connection stale without closing it. A caller
// currently holding it can keep using it until the next GetConnection for
// name, which disconnects the stale connection before dialing a fresh one.
func (p *Pool) ForceReconnect(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stale[name] = true
}

// HealthCheck probes every registered server with a short-deadline ListTools
// call, reporting per-server whether the probe succeeded. A server whose
// circuit breaker is already open is reported unhealthy without spending a
// probe on it. Probe failures (timeout, transport error, or an open circuit)
// are reflected only in the returned map and the MCPCircuitState gauge —
// HealthCheck never panics or propagates an error for a single server's
// failed probe.
func (p *Pool) HealthCheck(ctx context.Context) map[string]bool {
	p.mu.RLock()
	names := make([]string, 0, len(p.servers))
	for name := range p.servers {
		names = append(names, name)
	}
	p.mu.RUnlock()

	status := make(map[string]bool, len(names))
	for _, name := range names {
		status[name] = p.probeServer(ctx, name)
	}
	return status
}

// probeServer runs one bounded ListTools call against name, reconnecting
// through the normal GetConnection path if needed. Any error — circuit
// open, rate limited, connect failure, transport error, or timeout —
// reports unhealthy rather than surfacing to the caller.
func (p *Pool) probeServer(ctx context.Context, name string) bool {
	p.mu.RLock()
	breaker := p.breakers[name]
	p.mu.RUnlock()

	if breaker != nil {
		metrics.MCPCircuitState.WithLabelValues(name).Set(float64(breaker.State()))
		if breaker.State() == resilience.CircuitOpen {
			return false
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.healthCheckTimeout)
	defer cancel()

	conn, err := p.GetConnection(probeCtx, name)
	if err != nil {
		return false
	}
	if _, err := conn.ListTools(probeCtx); err != nil {
		return false
	}
	return true
}

// CleanupExpiredConnections marks stale any connection older than the
// pool's configured TTL. A zero TTL disables expiry.
func (p *Pool) CleanupExpiredConnections() {
	if p.connTTL <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.connTTL)
	for name, connectedAt := range p.connectedAt {
		if connectedAt.Before(cutoff) {
			p.stale[name] = true
		}
	}
}

// Close disconnects every live connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for name, conn := range p.connections {
		if err := conn.Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.connections, name)
	}
	return firstErr
}
