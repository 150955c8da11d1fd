package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"careerscope/internal/config"
	"careerscope/internal/errors"
	"careerscope/internal/observability"
	"careerscope/internal/types"

	"github.com/gorilla/websocket"
)

type pushState int

const (
	pushIdle pushState = iota
	pushConnecting
	pushOpen
	pushClosed
)

// pushChannel is the WebSocket notification channel. It moves through
// idle -> connecting -> open -> closed exactly once; Close is a no-op unless
// the channel is connecting or open, so double-teardown is safe.
type pushChannel struct {
	url     string
	cfg     config.PushChannelConfig
	logger  *errors.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	state pushState
	conn  *websocket.Conn

	writeMu sync.Mutex
}

func newPushChannel(url string, cfg config.PushChannelConfig, logger *errors.Logger,
	metrics *observability.Metrics) *pushChannel {
	return &pushChannel{url: url, cfg: cfg, logger: logger, metrics: metrics}
}

// open dials the endpoint and starts the read and keepalive loops. The
// channel closes itself when ctx is canceled.
func (p *pushChannel) open(ctx context.Context, events chan<- inbound) error {
	p.mu.Lock()
	if p.state != pushIdle {
		p.mu.Unlock()
		return errors.NewChannelError(errors.ErrCodeChannelArmed, "push channel already armed", nil)
	}
	p.state = pushConnecting
	p.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: p.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		p.mu.Lock()
		p.state = pushClosed
		p.mu.Unlock()
		return errors.NewChannelError(errors.ErrCodeChannelOpen, "push channel dial failed", err)
	}

	p.mu.Lock()
	if p.state != pushConnecting {
		// Closed while the dial was in flight.
		p.mu.Unlock()
		conn.Close()
		return errors.NewChannelError(errors.ErrCodeChannelOpen, "push channel closed during dial", nil)
	}
	p.conn = conn
	p.state = pushOpen
	p.mu.Unlock()

	p.logger.Debug("Push channel open", "url", p.url)

	go p.readLoop(ctx, events)
	go p.keepalive(ctx)
	go func() {
		<-ctx.Done()
		p.Close()
	}()
	return nil
}

// Close tears the channel down if it is connecting or open. Idempotent.
func (p *pushChannel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case pushConnecting:
		p.state = pushClosed
	case pushOpen:
		p.state = pushClosed
		deadline := time.Now().Add(p.cfg.WriteDeadline)
		p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		p.conn.Close()
	}
}

func (p *pushChannel) closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == pushClosed
}

func (p *pushChannel) readLoop(ctx context.Context, events chan<- inbound) {
	conn := p.conn
	conn.SetReadDeadline(time.Now().Add(p.cfg.ReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(p.cfg.ReadDeadline))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !p.closed() && ctx.Err() == nil {
				p.logger.Debug("Push channel read ended", "error", err.Error())
				p.Close()
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(p.cfg.ReadDeadline))

		var msg types.PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames never kill the channel.
			p.metrics.PushMessageDropped()
			p.logger.Warn("Dropped malformed push message", "error", err.Error())
			continue
		}

		switch msg.Type {
		case types.MsgPing:
			p.writeJSON(types.PushMessage{Type: types.MsgPong})
		case types.MsgPong:
			// Keepalive reply, nothing to forward.
		default:
			p.metrics.PushMessageReceived(msg.Type)
			select {
			case events <- inbound{source: "push", msg: msg}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// keepalive sends periodic protocol-level pings so proxies and the server
// keep the connection alive between agent updates.
func (p *pushChannel) keepalive(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.state != pushOpen {
				p.mu.Unlock()
				return
			}
			conn := p.conn
			p.mu.Unlock()
			deadline := time.Now().Add(p.cfg.WriteDeadline)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (p *pushChannel) writeJSON(msg types.PushMessage) {
	p.mu.Lock()
	if p.state != pushOpen {
		p.mu.Unlock()
		return
	}
	conn := p.conn
	p.mu.Unlock()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteDeadline))
	if err := conn.WriteJSON(msg); err != nil {
		p.logger.Debug("Push channel write failed", "error", err.Error())
	}
}
