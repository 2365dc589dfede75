package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Heartbeat interval
	DefaultHeartbeatInterval = 30 * time.Second

	// Reconnect settings
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
)

// ErrNotConnected is returned by Emit while the feed is down
var ErrNotConnected = errors.New("websocket not connected")

// heartbeatMessage keeps idle feeds open through proxies
type heartbeatMessage struct {
	Action string `json:"action"`
}

// WSErrorHandler is a callback function for handling feed errors
type WSErrorHandler func(err error)

// WSConfig holds configuration for the websocket feed
type WSConfig struct {
	Endpoint             string
	APIKey               string
	HeartbeatInterval    time.Duration
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	OnError              WSErrorHandler
	OnConnect            func()
	OnDisconnect         func()
}

// WSSink pushes events as JSON text frames to a websocket feed and
// reconnects when the peer goes away
type WSSink struct {
	config          WSConfig
	conn            *websocket.Conn
	mu              sync.RWMutex
	writeMu         sync.Mutex
	connected       bool
	ctx             context.Context
	cancel          context.CancelFunc
	heartbeatTicker *time.Ticker
	closed          bool
}

// NewWSSink creates a websocket sink; call Connect before emitting
func NewWSSink(config WSConfig) *WSSink {
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if config.ReconnectInterval == 0 {
		config.ReconnectInterval = DefaultReconnectInterval
	}
	if config.MaxReconnectAttempts == 0 {
		config.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	return &WSSink{config: config}
}

// Connect establishes the websocket connection
func (s *WSSink) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if s.closed {
		return fmt.Errorf("websocket sink closed")
	}

	u, err := url.Parse(s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse websocket endpoint: %w", err)
	}
	if s.config.APIKey != "" {
		q := u.Query()
		q.Set("apikey", s.config.APIKey)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}

	// the session outlives the dial context
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.conn = conn
	s.connected = true

	s.startHeartbeat(s.ctx)
	go s.readLoop(s.ctx, conn)

	if s.config.OnConnect != nil {
		go s.config.OnConnect()
	}
	return nil
}

// IsConnected returns the current connection status
func (s *WSSink) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Emit writes the event as a single text frame
func (s *WSSink) Emit(_ context.Context, ev Event) error {
	return s.send(ev)
}

// Close stops reconnecting and closes the connection
func (s *WSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return s.disconnect()
}

// disconnect must be called with mu held
func (s *WSSink) disconnect() error {
	if s.cancel != nil {
		s.cancel()
	}
	if !s.connected {
		return nil
	}
	s.connected = false

	if s.heartbeatTicker != nil {
		s.heartbeatTicker.Stop()
	}

	var err error
	if s.conn != nil {
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
		s.conn = nil
	}

	if s.config.OnDisconnect != nil {
		go s.config.OnDisconnect()
	}
	return err
}

func (s *WSSink) send(msg interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected || s.conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// gorilla connections allow one concurrent writer
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (s *WSSink) startHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	s.heartbeatTicker = ticker

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.send(heartbeatMessage{Action: "HEARTBEAT"}); err != nil {
					s.reportError(fmt.Errorf("heartbeat failed: %w", err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// readLoop drains the peer's frames so control messages are processed and a
// dropped connection is noticed
func (s *WSSink) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ctx.Err() != nil {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.reportError(fmt.Errorf("read error: %w", err))
			}
			s.handleDisconnect()
			return
		}
	}
}

func (s *WSSink) handleDisconnect() {
	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	if s.heartbeatTicker != nil {
		s.heartbeatTicker.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	closed := s.closed
	s.mu.Unlock()

	if wasConnected && s.config.OnDisconnect != nil {
		s.config.OnDisconnect()
	}
	if !closed {
		go s.attemptReconnect()
	}
}

func (s *WSSink) attemptReconnect() {
	for attempt := 1; attempt <= s.config.MaxReconnectAttempts; attempt++ {
		time.Sleep(s.config.ReconnectInterval)

		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if closed {
			return
		}

		if err := s.Connect(context.Background()); err != nil {
			s.reportError(fmt.Errorf("reconnect attempt %d failed: %w", attempt, err))
			continue
		}
		return
	}
	s.reportError(fmt.Errorf("max reconnect attempts (%d) reached", s.config.MaxReconnectAttempts))
}

func (s *WSSink) reportError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}
