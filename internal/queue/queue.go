// Package queue carries weather observations between the producer and the worker
// over AMQP.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

// Message outcomes recorded in QueueMessagesTotal.
const (
	OutcomePublished = "published"
	OutcomeAcked     = "acked"
	OutcomeRequeued  = "requeued"
	OutcomeRejected  = "rejected"
)

// ErrMalformed marks a message body that cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Handler processes one decoded observation. A returned error requeues the message.
type Handler func(ctx context.Context, log models.WeatherLog) error

// Conn is an AMQP connection with one channel bound to a durable queue.
type Conn struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
}

// Dial connects to url and declares the durable queue name.
func Dial(url, name string, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return &Conn{conn: conn, ch: ch, queue: name, logger: logger}, nil
}

// Dial attempts and the pause between them for DialWithRetry.
const (
	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// DialWithRetry calls Dial until it succeeds, ctx ends or the attempts run out.
// Brokers often come up after the processes that use them.
func DialWithRetry(ctx context.Context, url, name string, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := Dial(url, name, logger)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn("queue connect failed", zap.Int("attempt", attempt), zap.Int("max_attempts", dialAttempts), zap.Error(err))
		if attempt == dialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}
	return nil, fmt.Errorf("connect to queue after %d attempts: %w", dialAttempts, lastErr)
}

// Close closes the channel and the connection.
func (c *Conn) Close() error {
	return errors.Join(c.ch.Close(), c.conn.Close())
}

// Encode renders an observation as a message body.
func Encode(log models.WeatherLog) ([]byte, error) {
	return json.Marshal(log)
}

// Decode parses a message body.
func Decode(body []byte) (models.WeatherLog, error) {
	var log models.WeatherLog
	if err := json.Unmarshal(body, &log); err != nil {
		return models.WeatherLog{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return log, nil
}

// Publish sends log as a persistent JSON message.
func (c *Conn) Publish(ctx context.Context, log models.WeatherLog) error {
	body, err := Encode(log)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if id := observability.CorrelationID(ctx); id != "" {
		msg.CorrelationId = id
	}
	if err := c.ch.PublishWithContext(ctx, "", c.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", c.queue, err)
	}
	observability.QueueMessagesTotal.WithLabelValues(OutcomePublished).Inc()
	return nil
}

// Consume delivers messages to handler one at a time with manual acknowledgement
// until ctx is done or the channel closes.
func (c *Conn) Consume(ctx context.Context, handler Handler) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.logger.Info("consuming", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			msgCtx := ctx
			if d.CorrelationId != "" {
				msgCtx = observability.WithCorrelationID(ctx, d.CorrelationId)
			}
			Dispatch(msgCtx, d, d.Body, handler, c.logger)
		}
	}
}

// Acknowledger is the acknowledgement surface of a delivery.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Dispatch decodes body and runs handler, then settles the delivery. Malformed
// bodies are dropped without requeue; handler failures are requeued. It returns
// the outcome label.
func Dispatch(ctx context.Context, ack Acknowledger, body []byte, handler Handler, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	outcome := OutcomeAcked
	var settleErr error

	log, err := Decode(body)
	switch {
	case err != nil:
		logger.Warn("dropping malformed message", zap.Error(err))
		outcome = OutcomeRejected
		settleErr = ack.Nack(false, false)
	default:
		if err := handler(ctx, log); err != nil {
			logger.Warn("handler failed, requeueing", zap.Error(err))
			outcome = OutcomeRequeued
			settleErr = ack.Nack(false, true)
		} else {
			settleErr = ack.Ack(false)
		}
	}
	if settleErr != nil {
		logger.Error("settle delivery failed", zap.String("outcome", outcome), zap.Error(settleErr))
	}
	observability.QueueMessagesTotal.WithLabelValues(outcome).Inc()
	return outcome
}
