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

	applog "finance/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var errCircuitOpen = errors.New("circuit breaker is open")

// Client publishes and consumes JSON messages on a durable direct exchange.
// Every queue is bound with its own name as routing key. Publishing goes
// through a circuit breaker and the connection is re-dialled on demand.
type Client struct {
	url          string
	exchangeName string
	queues       []string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

// NewClient dials url and declares the exchange plus the given queues. With no
// queues, both ledger queues are declared.
func NewClient(url, exchangeName string, queues ...string) (*Client, error) {
	if len(queues) == 0 {
		queues = []string{LedgerEventsQueue, RecurringReconcileQueue}
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queues:       queues,
	}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp091.Dial(c.url)
		if err != nil {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		c.conn = conn
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := c.setup(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}
	c.channel = ch
	return ch, nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range c.queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

// dropChannel forgets the current channel so the next call re-dials.
func (c *Client) dropChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
}

func (c *Client) PublishLedgerEvent(ctx context.Context, ev *LedgerEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}
	if err := c.publish(ctx, LedgerEventsQueue, body); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Published ledger event",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldEntity, ev.Entity,
		applog.FieldOperation, ev.Op,
		applog.FieldID, ev.ID,
		applog.FieldPeriod, ev.Period)
	return nil
}

func (c *Client) PublishReconcileRequest(ctx context.Context, req *ReconcileRequest) error {
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal reconcile request: %w", err)
	}
	if err := c.publish(ctx, RecurringReconcileQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published reconcile request",
		applog.FieldComponent, applog.ComponentAMQP, applog.FieldYear, req.Year)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: %w", routingKey, errCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx, c.exchangeName, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.dropChannel()
		}
		return fmt.Errorf("publish to %s: %w", routingKey, err)
	}

	c.recordSuccess()
	return nil
}

// ConsumeLedgerEvents delivers ledger events to handler until ctx is done.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *LedgerEvent) error) error {
	return consume(ctx, c, LedgerEventsQueue, LedgerEventFromJSON, handler)
}

// ConsumeReconcileRequests delivers reconcile requests to handler until ctx
// is done.
func (c *Client) ConsumeReconcileRequests(ctx context.Context, handler func(context.Context, *ReconcileRequest) error) error {
	return consume(ctx, c, RecurringReconcileQueue, ReconcileRequestFromJSON, handler)
}

// consume keeps a consumer running on queue, re-dialling with exponential
// backoff when the connection drops.
func consume[T any](ctx context.Context, c *Client, queue string, decode func([]byte) (*T, error), handler func(context.Context, *T) error) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, queue, func(d amqp091.Delivery) {
			if handleDelivery(ctx, queue, d, decode, handler) {
				attempt = 0
			}
		})
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) {
			return err
		}

		c.dropChannel()
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP consumer disconnected, retrying",
			"queue", queue,
			"attempt", attempt+1,
			"backoff", wait,
			"error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// handleDelivery decodes and handles one delivery and settles it. Malformed
// messages are rejected without requeue. A handler failure is requeued once;
// if the redelivered message fails again it is dropped. Reports whether the
// message was acked.
func handleDelivery[T any](ctx context.Context, queue string, d amqp091.Delivery, decode func([]byte) (*T, error), handler func(context.Context, *T) error) bool {
	msg, err := decode(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode message",
			applog.FieldComponent, applog.ComponentAMQP, "queue", queue, applog.FieldError, err)
		_ = d.Nack(false, false)
		return false
	}
	if err := handler(ctx, msg); err != nil {
		if d.Redelivered {
			slog.ErrorContext(ctx, "Dropping message after failed redelivery",
				applog.FieldComponent, applog.ComponentAMQP, "queue", queue, applog.FieldError, err)
			_ = d.Nack(false, false)
			return false
		}
		slog.WarnContext(ctx, "Failed to handle message, requeueing",
			applog.FieldComponent, applog.ComponentAMQP, "queue", queue, applog.FieldError, err)
		_ = d.Nack(false, true)
		return false
	}
	_ = d.Ack(false)
	return true
}

func (c *Client) consumeOnce(ctx context.Context, queue string, handle func(amqp091.Delivery)) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", queue, err)
	}
	slog.InfoContext(ctx, "Started consuming messages", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consume %s: connection closed", queue)
			}
			handle(d)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	since := time.Since(c.lastFailure)
	c.mu.Unlock()
	if since > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
