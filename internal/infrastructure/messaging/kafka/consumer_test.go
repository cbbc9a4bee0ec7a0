package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/autofragment/pkg/errors"
)

// mockKafkaReader serves queued messages, then blocks until cancelled.
type mockKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []kafka.Message
	closed    bool
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockKafkaReader) commits() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.committed...)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*ProducerMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "autofrag-workers",
		Topics:  []string{TopicRequests},
		RetryConfig: RetryConfig{
			MaxRetries:   2,
			RetryBackoff: time.Millisecond,
		},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(newTestConsumerConfig()))

	cfg := newTestConsumerConfig()
	cfg.Brokers = nil
	assert.True(t, pkgerrors.IsCode(ValidateConsumerConfig(cfg), pkgerrors.ErrCodeValidation))

	cfg = newTestConsumerConfig()
	cfg.Topics = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.Security = SecurityConfig{SASLEnabled: true, SASLMechanism: "PLAIN"}
	assert.Error(t, ValidateConsumerConfig(cfg))
}

func TestConsumer_StartWithoutHandler(t *testing.T) {
	c := newConsumer(&mockKafkaReader{}, newTestConsumerConfig(), nil)
	assert.ErrorIs(t, c.Start(context.Background()), ErrNoHandler)
}

func TestConsumer_StartTwice(t *testing.T) {
	c := newConsumer(&mockKafkaReader{}, newTestConsumerConfig(), nil)
	c.Subscribe(TopicRequests, func(context.Context, *Message) error { return nil })

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)
	assert.NoError(t, c.Close())
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{
		{Topic: TopicRequests, Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "k", Value: []byte("v")}}},
		{Topic: TopicRequests, Offset: 2, Value: []byte("b")},
	}}
	c := newConsumer(reader, newTestConsumerConfig(), nil)

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	c.Subscribe(TopicRequests, func(_ context.Context, msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(msg.Value))
		if len(seen) == 1 {
			assert.Equal(t, "v", msg.Headers["k"])
		}
		if len(seen) == 2 {
			close(done)
		}
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handler")
	}
	assert.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.True(t, reader.closed)
	consumed, processed, failed, _ := c.Stats()
	assert.Equal(t, int64(2), consumed)
	assert.Equal(t, int64(2), processed)
	assert.Zero(t, failed)
}

func TestConsumer_UnknownTopicCommitted(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{Topic: "other", Offset: 9}}}
	c := newConsumer(reader, newTestConsumerConfig(), nil)
	c.Subscribe(TopicRequests, func(context.Context, *Message) error { return nil })

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
}

func TestConsumer_FetchErrorRecovers(t *testing.T) {
	reader := &mockKafkaReader{
		fetchErrs: []error{errors.New("broker gone")},
		queue:     []kafka.Message{{Topic: TopicRequests, Offset: 1, Value: []byte("x")}},
	}
	c := newConsumer(reader, newTestConsumerConfig(), nil)
	c.fetchPause = time.Millisecond

	var calls atomic.Int32
	c.Subscribe(TopicRequests, func(context.Context, *Message) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
}

func TestProcessMessage_RetrySuccess(t *testing.T) {
	c := newConsumer(nil, newTestConsumerConfig(), nil)

	attempts := 0
	err := c.processMessage(context.Background(), &Message{}, func(context.Context, *Message) error {
		attempts++
		if attempts < 2 {
			return errors.New("fail")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), c.metrics.MessagesRetried.Load())
}

func TestProcessMessage_RetryExhaustedDeadLetters(t *testing.T) {
	cfg := newTestConsumerConfig()
	cfg.RetryConfig.DeadLetterTopic = TopicDeadLetter
	c := newConsumer(nil, cfg, nil)
	dlq := &recordingPublisher{}
	c.SetDeadLetter(dlq)

	attempts := 0
	msg := &Message{Topic: TopicRequests, Key: []byte("run-1"), Value: []byte("{}"), Headers: map[string]string{"trace": "t1"}}
	err := c.processMessage(context.Background(), msg, func(context.Context, *Message) error {
		attempts++
		return pkgerrors.New(pkgerrors.ErrCodeSerialization, "bad payload")
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
	require.Len(t, dlq.msgs, 1)
	dl := dlq.msgs[0]
	assert.Equal(t, TopicDeadLetter, dl.Topic)
	assert.Equal(t, "run-1", string(dl.Key))
	assert.Equal(t, TopicRequests, dl.Headers["original_topic"])
	assert.Equal(t, "COMMON_011", dl.Headers["error_code"])
	assert.Equal(t, "t1", dl.Headers["trace"])
	_, hasCode := msg.Headers["error_code"]
	assert.False(t, hasCode)

	_, _, failed, deadLettered := c.Stats()
	assert.Equal(t, int64(1), failed)
	assert.Equal(t, int64(1), deadLettered)
}

func TestProcessMessage_CancelledDuringBackoff(t *testing.T) {
	cfg := newTestConsumerConfig()
	cfg.RetryConfig.RetryBackoff = time.Hour
	c := newConsumer(nil, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	err := c.processMessage(ctx, &Message{}, func(context.Context, *Message) error {
		cancel()
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

//Personal.AI order the ending
