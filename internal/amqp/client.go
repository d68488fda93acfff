package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 3
	openTimeout    = 30 * time.Second
	dialTimeout    = 2 * time.Second
	publishTimeout = 2 * time.Second
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrReconnecting is returned while another publish is dialing the broker.
	ErrReconnecting = errors.New("reconnect in progress")
)

// Client publishes ledger events to a topic exchange. A lost connection is
// redialed once per publish with a short timeout. Repeated failures open
// the circuit, so callers never wait on a dead broker for long.
type Client struct {
	url          string
	exchangeName string
	routingKey   string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	dialing atomic.Bool

	failureCount int64
	state        int32
	lastFailure  atomic.Int64 // unix nanos
}

// NewClient dials the broker and declares the exchange.
func NewClient(url, exchangeName, routingKey string) (*Client, error) {
	c := &Client{url: url, exchangeName: exchangeName, routingKey: routingKey}
	conn, channel, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.conn, c.channel = conn, channel
	return c, nil
}

// dial connects, opens a channel and declares the exchange. It touches no
// client state, so it runs without mu held.
func (c *Client) dial() (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, channel, nil
}

// ensureChannel returns the open channel or makes a single dial attempt.
// Only one publish dials at a time; the others fail with ErrReconnecting
// instead of queueing behind it.
func (c *Client) ensureChannel(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	if c.channel != nil && !c.channel.IsClosed() {
		channel := c.channel
		c.mu.Unlock()
		return channel, nil
	}
	c.mu.Unlock()

	if !c.dialing.CompareAndSwap(false, true) {
		return nil, ErrReconnecting
	}
	defer c.dialing.Store(false)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, channel, err := c.dial()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.closeLocked()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()

	slog.InfoContext(ctx, "AMQP connection established", "exchange", c.exchangeName)
	return channel, nil
}

// Publish sends ev to the exchange with the configured routing key.
func (c *Client) Publish(ctx context.Context, ev *LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", ev.Type, ErrCircuitOpen)
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	channel, err := c.ensureChannel(ctx)
	if err != nil {
		if !errors.Is(err, ErrReconnecting) {
			c.recordFailure()
		}
		return fmt.Errorf("connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
			Type:         string(ev.Type),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published ledger event",
		"type", ev.Type,
		"id", ev.ID,
		"exchange", c.exchangeName,
		"routing_key", c.routingKey)
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	last := time.Unix(0, c.lastFailure.Load())
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.lastFailure.Store(time.Now().UnixNano())
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
