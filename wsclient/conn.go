/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package wsclient connects to exchange streams over websocket
// and routes inbound messages to topic subscriptions.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/acronis/go-exchkit/log"
	"github.com/acronis/go-exchkit/retry"
	"github.com/acronis/go-exchkit/topic"
)

// ErrClosed is returned when sending to a closed connection.
var ErrClosed = errors.New("websocket connection is closed")

// HandshakeError is returned by Dial when the server responded with a non-101 status.
type HandshakeError struct {
	StatusCode int
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("websocket handshake failed with status %d", e.StatusCode)
}

// Opts represents options for Dial.
type Opts struct {
	// Header is sent with the handshake request.
	Header http.Header

	// Dialer is used to establish the connection. websocket.DefaultDialer is used if nil.
	Dialer *websocket.Dialer

	Logger           log.FieldLogger
	MetricsCollector MetricsCollector

	// Masker masks secrets (listen keys, api keys) in the logged URL and errors.
	// Masker built from log.DefaultMasks is used if nil.
	Masker log.StringMasker
}

// Stats is a snapshot of connection counters.
type Stats struct {
	Received  int64
	Routed    int64
	Malformed int64
	Sent      int64
}

// Conn is a websocket connection to an exchange stream.
// Inbound messages are routed by topic.Router on the goroutine running Run.
// SendJSON may be called concurrently.
type Conn struct {
	ws      *websocket.Conn
	cfg     Config
	router  *topic.Router
	logger  log.FieldLogger
	metrics MetricsCollector
	limiter *rate.Limiter

	writeMu sync.Mutex
	closed  atomic.Bool

	received  atomic.Int64
	routed    atomic.Int64
	malformed atomic.Int64
	sent      atomic.Int64
}

// Dial connects to cfg.URL retrying transient failures with exponential backoff.
// Handshake rejections with 4xx status (except 429) are not retried.
func Dial(ctx context.Context, cfg *Config, router *topic.Router, opts Opts) (*Conn, error) {
	if router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Masker == nil {
		opts.Masker = log.NewMasker(log.DefaultMasks)
	}
	logger := log.NewMaskingLogger(opts.Logger, opts.Masker).With(log.String("url", cfg.URL))

	var ws *websocket.Conn
	attempt := 0
	notify := func(err error, next time.Duration) {
		logger.Warn("websocket dial failed, retrying",
			log.Int("attempt", attempt), log.Int64("retry_in_ms", next.Milliseconds()), log.Error(err))
	}
	err := retry.DoWithRetry(ctx, cfg.Dial.retryPolicy(), isRetryableDialError, notify, func(ctx context.Context) error {
		attempt++
		conn, resp, dialErr := opts.Dialer.DialContext(ctx, cfg.URL, opts.Header)
		opts.MetricsCollector.IncDials(dialErr == nil)
		if dialErr != nil {
			if resp != nil && errors.Is(dialErr, websocket.ErrBadHandshake) {
				return &HandshakeError{StatusCode: resp.StatusCode}
			}
			return dialErr
		}
		ws = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Masker.Mask(cfg.URL), err)
	}
	logger.Info("websocket connection is established", log.Int("attempts", attempt))

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	return &Conn{
		ws:      ws,
		cfg:     *cfg,
		router:  router,
		logger:  logger,
		metrics: opts.MetricsCollector,
		limiter: rate.NewLimiter(limit, max(cfg.SendBurst, 1)),
	}, nil
}

func isRetryableDialError(err error) bool {
	var hsErr *HandshakeError
	if errors.As(err, &hsErr) {
		return hsErr.StatusCode == http.StatusTooManyRequests || hsErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// Run reads and routes inbound messages and pings the server until ctx is done,
// the connection is closed or fails. It returns nil after Close.
func (c *Conn) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return c.readLoop()
	})
	g.Go(func() error {
		return c.pingLoop(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		c.closed.Store(true)
		_ = c.ws.Close() // unblocks the read loop
		return nil
	})
	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (c *Conn) readLoop() error {
	if c.cfg.PongWait > 0 {
		if err := c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			return err
		}
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		})
	}
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.closed.Store(true)
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if c.cfg.PongWait > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		}
		c.received.Inc()
		c.route(data)
	}
}

func (c *Conn) route(data []byte) {
	n, err := c.router.Route(topic.JSONMessage(data))
	switch {
	case err != nil:
		c.malformed.Inc()
		c.metrics.IncMessages(OutcomeMalformed)
		c.logger.Warn("malformed websocket message is skipped", log.Int("size", len(data)), log.Error(err))
	case n == 0:
		c.metrics.IncMessages(OutcomeUnrouted)
		c.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
			logFunc("websocket message has no subscribers", log.Int("size", len(data)))
		})
	default:
		c.routed.Inc()
		c.metrics.IncMessages(OutcomeRouted)
	}
}

func (c *Conn) pingLoop(ctx context.Context) error {
	if c.cfg.PingInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, c.writeDeadline()); err != nil {
				if c.closed.Load() {
					return nil
				}
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

// SendJSON encodes v as JSON and sends it as a text message.
// Outbound messages are paced according to the configured send rate.
func (c *Conn) SendJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if err = c.limiter.Wait(ctx); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	if err = c.ws.SetWriteDeadline(c.writeDeadline()); err != nil {
		return err
	}
	if err = c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	c.sent.Inc()
	c.metrics.IncMessages(OutcomeSent)
	return nil
}

// Close sends a close frame and closes the connection. It's safe to call it multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, closeMsg, c.writeDeadline())
	c.logger.Info("websocket connection is closed")
	return c.ws.Close()
}

// Stats returns a snapshot of the connection counters.
func (c *Conn) Stats() Stats {
	return Stats{
		Received:  c.received.Load(),
		Routed:    c.routed.Load(),
		Malformed: c.malformed.Load(),
		Sent:      c.sent.Load(),
	}
}

func (c *Conn) writeDeadline() time.Time {
	if c.cfg.WriteTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.cfg.WriteTimeout)
}
