package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"eventbooking/pkg/logger"
)

// Handler reacts to one booking event. Returning an error leaves the message
// unmarked so it is redelivered after a rebalance.
type Handler interface {
	HandleBookingEvent(ctx context.Context, event *BookingEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event *BookingEvent) error

func (f HandlerFunc) HandleBookingEvent(ctx context.Context, event *BookingEvent) error {
	return f(ctx, event)
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeout       time.Duration
	Heartbeat            time.Duration
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "eventbooking-notifier",
		Topics:               []string{"booking-events"},
		SessionTimeout:       30 * time.Second,
		Heartbeat:            3 * time.Second,
		MaxProcessingTime:    time.Minute,
		OffsetOldest:         true,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// Consumer reads booking events from Kafka and hands them to a Handler.
type Consumer struct {
	group   sarama.ConsumerGroup
	config  *ConsumerConfig
	handler Handler
	log     *logger.Logger
}

func NewConsumer(config *ConsumerConfig, handler Handler, log *logger.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = config.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = config.Heartbeat
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	group, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return NewConsumerWithGroup(group, config, handler, log), nil
}

// NewConsumerWithGroup wraps an existing consumer group.
func NewConsumerWithGroup(group sarama.ConsumerGroup, config *ConsumerConfig, handler Handler, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Consumer{group: group, config: config, handler: handler, log: log}
}

// Run consumes with numWorkers group members until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, numWorkers int) error {
	c.log.Info("Starting booking event consumers", "workers", numWorkers, "topics", c.config.Topics, "group", c.config.GroupID)

	go c.logErrors()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.runWorker(ctx, workerID)
		}(i)
	}
	wg.Wait()

	return ctx.Err()
}

func (c *Consumer) runWorker(ctx context.Context, workerID int) {
	handler := &groupHandler{consumer: c, workerID: workerID}

	for {
		if err := c.group.Consume(ctx, c.config.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			c.log.Warn("Error consuming booking events", "worker", workerID, "error", err.Error())
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Consumer) logErrors() {
	for err := range c.group.Errors() {
		c.log.Warn("Consumer group error", "error", err.Error())
	}
}

func (c *Consumer) Close() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	c.log.Info("Booking event consumer stopped")
	return nil
}

type groupHandler struct {
	consumer *Consumer
	workerID int
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.consumer.process(session.Context(), message); err != nil {
				h.consumer.log.Error("Failed to process booking event",
					"worker", h.workerID,
					"partition", message.Partition,
					"offset", message.Offset,
					"error", err.Error(),
				)
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// process decodes one message and runs the handler with exponential backoff.
// Undecodable messages are logged and skipped.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event BookingEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		c.log.Warn("Skipping malformed booking event", "offset", message.Offset, "error", err.Error())
		return nil
	}

	backoff := c.config.RetryBackoffDuration
	var err error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err = c.handler.HandleBookingEvent(ctx, &event); err == nil {
			return nil
		}
		if attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-time.After(backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("handle %s after %d attempts: %w", event.Type, c.config.MaxRetries+1, err)
}

// LogHandler writes every booking event to the log. Compensation failures are
// logged at error level since they need an operator to fix the ticket count.
func LogHandler(log *logger.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, event *BookingEvent) error {
		attrs := []any{
			"type", string(event.Type),
			"event_id", event.EventID.String(),
			"user_id", event.UserID.String(),
			"tickets", event.Tickets,
			"occurred_at", event.OccurredAt,
		}
		if event.BookingID != nil {
			attrs = append(attrs, "booking_id", event.BookingID.String(), "booking_ref", event.BookingRef)
		}

		if event.Type == EventBookingCompensationFailed {
			attrs = append(attrs, "reason", event.Reason)
			log.ErrorContext(ctx, "Tickets were not returned to the event", attrs...)
			return nil
		}

		log.InfoContext(ctx, "Booking event received", attrs...)
		return nil
	})
}
