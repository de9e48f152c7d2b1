package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// wsTransport carries JSON-RPC messages over a long-lived websocket
// connection. A background goroutine sends periodic pings when
// HeartbeatInterval is configured, so a dead peer is noticed even while
// no request is in flight.
type wsTransport struct {
	url        string
	token      string
	authHeader string
	heartbeat  time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	cancelHB context.CancelFunc
}

func newWebSocketTransport(cfg Config) (Transport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("transport: websocket requires a url")
	}
	var hb time.Duration
	if cfg.HeartbeatInterval > 0 {
		hb = time.Duration(cfg.HeartbeatInterval) * time.Second
	}
	return &wsTransport{url: cfg.URL, token: cfg.Token, authHeader: cfg.AuthHeader, heartbeat: hb}, nil
}

func (t *wsTransport) Connect(ctx context.Context) error {
	opts := &websocket.DialOptions{}
	if t.token != "" {
		header := t.authHeader
		if header == "" {
			header = "Authorization"
		}
		value := t.token
		if header == "Authorization" {
			value = "Bearer " + t.token
		}
		opts.HTTPHeader = map[string][]string{header: {value}}
	}

	conn, _, err := websocket.Dial(ctx, t.url, opts)
	if err != nil {
		return fmt.Errorf("transport: websocket dial %s: %w", t.url, err)
	}
	conn.SetReadLimit(-1)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	if t.heartbeat > 0 {
		hbCtx, cancel := context.WithCancel(context.Background())
		t.cancelHB = cancel
		go t.heartbeatLoop(hbCtx, conn)
	}
	return nil
}

func (t *wsTransport) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(t.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, t.heartbeat)
			_ = conn.Ping(pingCtx)
			cancel()
		}
	}
}

func (t *wsTransport) Send(ctx context.Context, msg []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("transport: websocket not connected")
	}
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return fmt.Errorf("transport: websocket write: %w", err)
	}
	return nil
}

func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("transport: websocket not connected")
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket read: %w", err)
	}
	return data, nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelHB != nil {
		t.cancelHB()
	}
	if t.conn == nil {
		return nil
	}
	return t.conn.Close(websocket.StatusNormalClosure, "connection closed")
}
