package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventTypeSessionCreated    EventType = "session_created"
	EventTypeUserJoined        EventType = "user_joined"
	EventTypeSongAdded         EventType = "song_added"
	EventTypeSongVoted         EventType = "song_voted"
	EventTypeSongRemoved       EventType = "song_removed"
	EventTypeNowPlayingChanged EventType = "now_playing_changed"
	EventTypeQueueCleared      EventType = "queue_cleared"
)

type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	UserName  string          `json:"user_name"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event envelope around an encoded payload.
func NewEvent(eventType EventType, sessionID, userName string, payload interface{}) (Event, error) {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		UserName:  userName,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// Publisher receives session activity. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

type KafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

// NewKafkaClient creates a producer for topic. The consumer side is only
// created when groupID is non-empty.
func NewKafkaClient(brokers []string, topic string, groupID string) *KafkaClient {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}

	client := &KafkaClient{writer: writer}
	if groupID != "" {
		client.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
		})
	}
	return client
}

// Publish writes the event keyed by session so a session's events stay ordered within a partition.
func (k *KafkaClient) Publish(ctx context.Context, event Event) error {
	messageJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: messageJSON,
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (k *KafkaClient) ConsumeEvents(ctx context.Context, handler func(Event) error) error {
	if k.reader == nil {
		return errors.New("kafka client has no consumer group")
	}
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}

		if err := handler(event); err != nil {
			return fmt.Errorf("failed to handle event: %w", err)
		}
	}
}

func (k *KafkaClient) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if k.reader != nil {
		if err := k.reader.Close(); err != nil {
			return fmt.Errorf("failed to close reader: %w", err)
		}
	}
	return nil
}

// Event payload types
type SessionCreatedPayload struct {
	Name     string `json:"name"`
	HostName string `json:"host_name"`
}

type SongPayload struct {
	SongID string `json:"song_id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

type SongVotedPayload struct {
	SongID    string `json:"song_id"`
	Direction string `json:"direction"`
	NetScore  int    `json:"net_score"`
}

type NowPlayingPayload struct {
	SongID         string `json:"song_id"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	PreviousSongID string `json:"previous_song_id,omitempty"`
}

type QueueClearedPayload struct {
	Removed int `json:"removed"`
}
