package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublishing(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := newPublishing("order.placed", map[string]any{"order_id": "o-1", "total": 100000}, now)
	require.NoError(t, err)

	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "order.placed", msg.Type)
	assert.Equal(t, now, msg.Timestamp)
	assert.NotEmpty(t, msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "o-1", body["order_id"])
}

func TestNewPublishingRejectsUnmarshalable(t *testing.T) {
	_, err := newPublishing("order.placed", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestNopPublish(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), "order.placed", nil))
}
