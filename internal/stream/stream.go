// Package stream pushes live position views to websocket subscribers.
package stream

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/navid-fn/compass/internal/position"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Streamer serves one aggregate push per interval on each connection.
// A degraded or timed-out aggregate is reported in-band; only transport
// errors close the connection.
type Streamer struct {
	aggregator *position.Aggregator
	interval   time.Duration
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

func NewStreamer(aggregator *position.Aggregator, interval time.Duration, logger *slog.Logger) *Streamer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Streamer{
		aggregator: aggregator,
		interval:   interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "position-stream"),
	}
}

// errorTick is pushed when one aggregate round fails entirely.
type errorTick struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
}

// ServePositions upgrades the request and streams position views for the
// path symbol until the client disconnects.
func (s *Streamer) ServePositions(c *gin.Context) {
	symbol := c.Param("symbol")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "symbol", symbol, "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("stream opened", "symbol", symbol, "remote", conn.RemoteAddr())

	// Reader goroutine: consume control frames and detect disconnect.
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	// First push immediately, then on the ticker.
	if !s.push(c, conn, symbol) {
		return
	}

	for {
		select {
		case <-done:
			s.logger.Info("stream closed by client", "symbol", symbol)
			return
		case <-c.Request.Context().Done():
			return
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			if !s.push(c, conn, symbol) {
				return
			}
		}
	}
}

// push sends one aggregate round. Returns false when the connection is no
// longer usable.
func (s *Streamer) push(c *gin.Context, conn *websocket.Conn, symbol string) bool {
	view, err := s.aggregator.Fetch(c.Request.Context(), symbol)

	var payload any
	if err != nil {
		if !errors.Is(err, position.ErrAggregateTimeout) {
			s.logger.Error("aggregate fetch failed", "symbol", symbol, "error", err)
		}
		payload = errorTick{
			Symbol:    symbol,
			Timestamp: time.Now().UTC(),
			Success:   false,
			Error:     err.Error(),
		}
	} else {
		payload = view
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(payload); err != nil {
		s.logger.Info("stream write failed", "symbol", symbol, "error", err)
		return false
	}
	return true
}
