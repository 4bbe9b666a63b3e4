package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Broker)(nil)
	_ ext.SessionOpened = (*Broker)(nil)
	_ ext.StateChanged  = (*Broker)(nil)
	_ ext.FetchRetrying = (*Broker)(nil)
	_ ext.FetchFailed   = (*Broker)(nil)
	_ ext.SessionClosed = (*Broker)(nil)
	_ ext.Shutdown      = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// Broker fans tracker lifecycle events out to channel subscribers by
// topic. Register it on the tracker's extension registry.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	subscribers sync.Map // subscriberID → *Subscriber

	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	bufferSize int
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:     NewTopicRegistry(),
		logger:     logger,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics. An existing
// subscriber with the same ID is replaced and closed.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize)
	if old, loaded := b.subscribers.Swap(subscriberID, sub); loaded {
		b.topics.UnsubscribeAll(subscriberID)
		old.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// BrokerStats contains broker counters.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

func (b *Broker) publish(typ EventType, jobID, state string, data any) {
	evt := &Event{
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Topic:     JobTopic(jobID),
		JobID:     jobID,
		Data:      mustMarshal(data),
	}
	delivered, dropped := b.topics.Broadcast(resolveTopics(evt, state), evt)
	b.totalPublished.Add(int64(delivered))
	if dropped > 0 {
		b.totalDropped.Add(int64(dropped))
		b.logger.Debug("stream subscriber buffer full, event dropped",
			slog.String("type", string(typ)),
			slog.String("job_id", jobID),
			slog.Int("dropped", dropped),
		)
	}
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

// ── Tracker lifecycle hooks ─────────────────────────

func (b *Broker) OnSessionOpened(_ context.Context, jobID, source string) error {
	b.publish(EventSessionOpened, jobID, "", SessionEventData{
		JobID:  jobID,
		Source: source,
	})
	return nil
}

func (b *Broker) OnStateChanged(_ context.Context, cur, prev *job.Snapshot) error {
	data := StateEventData{
		JobID: cur.ID,
		State: string(cur.State),
	}
	if prev != nil {
		data.PrevState = string(prev.State)
	}
	b.publish(EventStateChanged, cur.ID, string(cur.State), data)
	return nil
}

func (b *Broker) OnFetchRetrying(_ context.Context, jobID string, attempt int, retryIn time.Duration, err error) error {
	b.publish(EventFetchRetrying, jobID, "", FetchEventData{
		JobID:      jobID,
		Attempt:    attempt,
		RetryInMs:  retryIn.Milliseconds(),
		StatusCode: jobwatch.StatusCode(err),
		Error:      err.Error(),
	})
	return nil
}

func (b *Broker) OnFetchFailed(_ context.Context, jobID string, err error) error {
	b.publish(EventFetchFailed, jobID, "", FetchEventData{
		JobID:      jobID,
		StatusCode: jobwatch.StatusCode(err),
		Error:      err.Error(),
	})
	return nil
}

func (b *Broker) OnSessionClosed(_ context.Context, jobID string, reason ext.CloseReason, elapsed time.Duration) error {
	b.publish(EventSessionClosed, jobID, "", SessionEventData{
		JobID:     jobID,
		Reason:    string(reason),
		ElapsedMs: elapsed.Milliseconds(),
	})
	return nil
}

// OnShutdown closes every subscriber channel.
func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, val any) bool {
		b.topics.UnsubscribeAll(key.(string)) //nolint:errcheck // keys are strings
		val.(*Subscriber).Close()             //nolint:errcheck // sync.Map always stores *Subscriber
		b.subscribers.Delete(key)
		return true
	})
	return nil
}
