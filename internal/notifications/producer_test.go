package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/pkg/logger"
)

func TestKafkaPublisherSendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, DefaultKafkaProducerConfig().saramaConfig())
	publisher := NewKafkaPublisherWithProducer(producer, "booking-events", logger.Discard())

	eventID, userID := uuid.New(), uuid.New()
	event := NewBookingEvent(EventBookingConfirmed, eventID, userID, 3)
	event.TotalAmount = 75

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got BookingEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != EventBookingConfirmed || got.Tickets != 3 || got.EventID != eventID {
			return errors.New("unexpected payload")
		}
		return nil
	})

	require.NoError(t, publisher.Publish(context.Background(), event))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherSurfacesBrokerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, "booking-events", logger.Discard())

	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	err := publisher.Publish(context.Background(), NewBookingEvent(EventBookingCancelled, uuid.New(), uuid.New(), 1))
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, publisher.Close())
}

func TestHeadersCarryType(t *testing.T) {
	event := NewBookingEvent(EventBookingCompensationFailed, uuid.New(), uuid.New(), 2)
	headers := createHeaders(event)

	require.Len(t, headers, 3)
	assert.Equal(t, "event_type", string(headers[0].Key))
	assert.Equal(t, string(EventBookingCompensationFailed), string(headers[0].Value))
	assert.Equal(t, event.EventID.String(), event.PartitionKey())
}
