package messaging

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/config"
	"example.com/clinic/internal/metrics"
)

// ConfirmationRequest is the queue message that asks the worker to confirm
// one appointment.
type ConfirmationRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
}

// Client defines the queue operations used by the booking flow and the worker.
type Client interface {
	SendConfirmationRequest(ctx context.Context, req ConfirmationRequest) (string, error)
	ProcessMessages(ctx context.Context, handler func(ctx context.Context, req ConfirmationRequest) error) error
	Close(ctx context.Context) error
}

type serviceBusClient struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

// NewClient creates a service bus client for the confirmation queue.
func NewClient(cfg config.AzureConfig) (Client, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("service bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create sender for queue %s", cfg.QueueName)
	}

	return &serviceBusClient{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// SendConfirmationRequest enqueues the request and returns the message ID.
func (c *serviceBusClient) SendConfirmationRequest(ctx context.Context, req ConfirmationRequest) (string, error) {
	collector := metrics.GetCollector()

	data, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal confirmation request")
	}

	messageID := uuid.NewString()
	msg := &azservicebus.Message{
		MessageID: &messageID,
		Body:      data,
		ApplicationProperties: map[string]interface{}{
			"time": time.Now().UTC().Format(time.RFC3339),
		},
	}

	err = RetryWithBackoff(ctx, func() error {
		return c.sender.SendMessage(ctx, msg, nil)
	}, 3)
	if err != nil {
		collector.IncrementCounter(metrics.CounterMessagesError, 1)
		return "", errors.Wrap(err, "failed to send confirmation request")
	}

	collector.IncrementCounter(metrics.CounterMessagesSent, 1)
	return messageID, nil
}

// ProcessMessages receives from the queue in peek-lock mode and invokes handler
// for each message until ctx is cancelled. Handled messages are completed;
// handler failures abandon the message so the broker redelivers it.
func (c *serviceBusClient) ProcessMessages(ctx context.Context, handler func(ctx context.Context, req ConfirmationRequest) error) error {
	receiver, err := c.client.NewReceiverForQueue(c.queueName, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create receiver for queue %s", c.queueName)
	}
	defer receiver.Close(context.Background())

	collector := metrics.GetCollector()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		receiveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		messages, err := receiver.ReceiveMessages(receiveCtx, 10, nil)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// An empty poll times out the receive context; that is not an error.
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if IsDisconnectionError(err) {
				log.Warn().Err(err).Msg("service bus disconnected, retrying")
				continue
			}
			return errors.Wrap(err, "failed to receive messages")
		}

		collector.SetGauge(metrics.GaugePendingMessages, float64(len(messages)))

		for _, msg := range messages {
			var req ConfirmationRequest
			if err := json.Unmarshal(msg.Body, &req); err != nil {
				// Malformed messages can never succeed, drop them.
				log.Error().Err(err).Str("message_id", msg.MessageID).Msg("dropping malformed message")
				if err := receiver.CompleteMessage(ctx, msg, nil); err != nil {
					log.Error().Err(err).Msg("failed to complete malformed message")
				}
				collector.IncrementCounter(metrics.CounterMessagesError, 1)
				continue
			}

			if err := handler(ctx, req); err != nil {
				log.Error().Err(err).
					Str("appointment_id", req.AppointmentID.String()).
					Msg("message handler failed, abandoning for redelivery")
				if err := receiver.AbandonMessage(ctx, msg, nil); err != nil {
					log.Error().Err(err).Msg("failed to abandon message")
				}
				collector.IncrementCounter(metrics.CounterMessagesError, 1)
				continue
			}

			if err := receiver.CompleteMessage(ctx, msg, nil); err != nil {
				log.Error().Err(err).Msg("failed to complete message")
				continue
			}
			collector.IncrementCounter(metrics.CounterMessagesProcessed, 1)
		}
	}
}

// Close closes the sender and the underlying client.
func (c *serviceBusClient) Close(ctx context.Context) error {
	if c.sender != nil {
		if err := c.sender.Close(ctx); err != nil {
			return err
		}
	}
	if c.client != nil {
		return c.client.Close(ctx)
	}

	return nil
}

// IsDisconnectionError checks if an error is a transient disconnection error.
func IsDisconnectionError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "amqp: link detached") ||
		strings.Contains(errMsg, "awaiting send: context deadline exceeded")
}

// RetryWithBackoff retries an operation with exponential backoff while the
// error looks like a disconnection.
func RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var err error

	for retry := 0; retry < maxRetries; retry++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !IsDisconnectionError(err) {
			return err
		}

		backoff := time.Duration(1<<uint(retry)) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}

		select {
		case <-time.After(backoff):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
