package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSConfig configures LogStream.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval between ping frames.
	PingInterval time.Duration
	// ReadTimeout is the maximum silence before the connection is considered dead.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for the subscription confirmation.
	SubscribeTimeout time.Duration
	// Commitment level of the subscription. Default: confirmed.
	Commitment string
}

// DefaultWSConfig returns the default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Commitment:        "confirmed",
	}
}

// LogStream keeps one logsSubscribe subscription alive over a Solana WebSocket endpoint,
// reconnecting and resubscribing with exponential backoff.
type LogStream struct {
	endpoint string
	config   WSConfig
	logger   zerolog.Logger

	requestID  atomic.Uint64
	connected  atomic.Bool
	reconnects atomic.Int64
}

// NewLogStream creates a stream for endpoint. It does not connect until Run.
func NewLogStream(endpoint string, config *WSConfig, logger *zerolog.Logger) *LogStream {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = 30 * time.Second
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &LogStream{
		endpoint: endpoint,
		config:   cfg,
		logger:   l.With().Str("component", "solana_ws").Logger(),
	}
}

// Connected reports whether a subscription is currently active.
func (s *LogStream) Connected() bool {
	return s.connected.Load()
}

// Reconnects returns the number of reconnect attempts so far.
func (s *LogStream) Reconnects() int64 {
	return s.reconnects.Load()
}

// Run subscribes with filter and calls handle for every notification until ctx is cancelled.
// Connection failures are retried forever. Run returns nil once ctx is done.
func (s *LogStream) Run(ctx context.Context, filter LogsFilter, handle func(LogNotification)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.ReconnectDelay
	b.MaxInterval = s.config.MaxReconnectDelay
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		received, err := s.session(ctx, filter, handle)
		if ctx.Err() != nil {
			return nil
		}
		if received {
			b.Reset()
		}

		delay := b.NextBackOff()
		s.reconnects.Add(1)
		s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("log subscription lost")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// session runs one connection. received is true when at least one notification arrived.
func (s *LogStream) session(ctx context.Context, filter LogsFilter, handle func(LogNotification)) (received bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	var writeMu sync.Mutex
	defer func() {
		cancel()
		wg.Wait()
		s.connected.Store(false)
	}()

	// Closing the connection unblocks ReadMessage when the session ends.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-sessCtx.Done()
		writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		writeMu.Unlock()
		conn.Close()
	}()

	reqID := s.requestID.Add(1)
	writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err = conn.WriteJSON(subscribeRequest(reqID, filter, s.config.Commitment))
	writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("write subscribe: %w", err)
	}

	subID, err := s.awaitSubscription(conn, reqID)
	if err != nil {
		return false, err
	}
	s.connected.Store(true)
	s.logger.Info().Int64("subscription", subID).Strs("mentions", filter.Mentions).Msg("log subscription active")

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pingLoop(sessCtx, conn, &writeMu)
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("read: %w", err)
		}

		notif, ok := parseNotification(message, subID)
		if !ok {
			continue
		}
		received = true
		handle(notif)
	}
}

// awaitSubscription reads until the confirmation for reqID arrives.
func (s *LogStream) awaitSubscription(conn *websocket.Conn, reqID uint64) (int64, error) {
	conn.SetReadDeadline(time.Now().Add(s.config.SubscribeTimeout))
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("await subscription: %w", err)
		}

		var resp wsResponse
		if err := json.Unmarshal(message, &resp); err != nil || resp.ID != reqID {
			continue
		}
		if resp.Error != nil {
			return 0, fmt.Errorf("subscribe rejected: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
		}
		if resp.Result == nil {
			return 0, errors.New("subscribe: empty result")
		}
		return *resp.Result, nil
	}
}

func (s *LogStream) pingLoop(ctx context.Context, conn *websocket.Conn, mu *sync.Mutex) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
			mu.Unlock()
			if err != nil {
				s.logger.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}

func subscribeRequest(id uint64, filter LogsFilter, commitment string) wsRequest {
	mentions := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentions["mentions"] = filter.Mentions
	} else {
		mentions["all"] = nil
	}
	return wsRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": commitment},
		},
	}
}

// parseNotification decodes a logsNotification for subID.
func parseNotification(message []byte, subID int64) (LogNotification, bool) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return LogNotification{}, false
	}
	if notif.Method != "logsNotification" || notif.Params == nil || notif.Params.Subscription != subID {
		return LogNotification{}, false
	}

	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}
	return out, true
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Result  *int64    `json:"result"`
	Error   *rpcError `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
