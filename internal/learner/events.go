package learner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded by the service.
const (
	EventQuizSubmitted       = "quiz_submitted"
	EventBadgeEarned         = "badge_earned"
	EventProgressWriteFailed = "progress_write_failed"
)

const eventTimeout = 5 * time.Second

// Event is one learning analytics record.
type Event struct {
	EventType  string
	ExerciseID string
	BadgeID    string
	Data       map[string]any
	CreatedAt  time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the learning_events table created by
// storage.Migrate.
type PostgresEventLogger struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewPostgresEventLogger(pool *pgxpool.Pool, namespace string) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool, namespace: namespace}
}

func (l *PostgresEventLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO learning_events (namespace, event_type, exercise_id, badge_id, data, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5::jsonb, $6)`,
		l.namespace,
		event.EventType,
		event.ExerciseID,
		event.BadgeID,
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"exercise_id", event.ExerciseID,
		"badge_id", event.BadgeID,
	)
	return nil
}
