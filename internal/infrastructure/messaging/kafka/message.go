// Package kafka carries decomposition requests and results over Kafka using
// segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/autofragment/pkg/errors"
)

// Default topic names.
const (
	TopicRequests   = "fragment.requests"
	TopicResults    = "fragment.results"
	TopicDeadLetter = "fragment.dead_letter"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// MessageHandler processes one message.  A non-nil error triggers retries.
type MessageHandler func(ctx context.Context, msg *Message) error

// BatchPublishResult reports the outcome of PublishBatch.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []error
}

// NewJSONMessage encodes v as the value of a message for topic.
func NewJSONMessage(topic, key string, v interface{}) (*ProducerMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode message")
	}
	return &ProducerMessage{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: map[string]string{"content-type": "application/json"},
	}, nil
}

// DecodeJSON decodes the value of msg into v.
func DecodeJSON(msg *Message, v interface{}) error {
	if err := json.Unmarshal(msg.Value, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode message").
			WithDetailf("topic=%s offset=%d", msg.Topic, msg.Offset)
	}
	return nil
}

//Personal.AI order the ending
