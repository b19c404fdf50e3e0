// Package learner runs the learning workflow: scoring a quiz submission,
// recording progress and awarding badges.
package learner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/pai-testlab/internal/badge"
	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/progress"
	"github.com/p-n-ai/pai-testlab/internal/quiz"
	"github.com/p-n-ai/pai-testlab/internal/storage"
)

var (
	// ErrExerciseNotFound is returned for an unknown exercise id.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrIncompleteSubmission is returned when a quiz question has no answer.
	ErrIncompleteSubmission = errors.New("every question must be answered")
	// ErrStorageUnavailable is returned when stored progress cannot be read.
	ErrStorageUnavailable = errors.New("progress storage unavailable")
)

// ProgressStore persists exercise records.
type ProgressStore interface {
	All() []progress.ExerciseProgress
	Load() ([]progress.ExerciseProgress, error)
	Save(p progress.ExerciseProgress) error
}

// BadgeStore persists earned badges.
type BadgeStore interface {
	All() []progress.UserBadge
	Load() ([]progress.UserBadge, error)
	Save(badges []progress.UserBadge) error
}

// Notifier is told about badges as soon as they are earned.
type Notifier interface {
	NotifyBadges(ctx context.Context, badges []progress.UserBadge)
}

// Config holds dependencies for the service.
type Config struct {
	Catalog  *catalog.Catalog
	Progress ProgressStore
	Badges   BadgeStore
	Events   EventLogger
	Notifier Notifier
	Now      func() time.Time
}

// Service orchestrates quiz submissions, progress writes and badge awards.
type Service struct {
	catalog  *catalog.Catalog
	progress ProgressStore
	badges   BadgeStore
	events   EventLogger
	notifier Notifier
	now      func() time.Time

	// mu serialises the read-modify-write of the progress and badge documents.
	mu sync.Mutex
}

// Outcome is the result of one quiz submission.
type Outcome struct {
	Result    quiz.Result               `json:"result"`
	Progress  progress.ExerciseProgress `json:"progress"`
	NewBadges []progress.UserBadge      `json:"newBadges"`
}

// New creates a service. Missing stores default to in-memory ones.
func New(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	var kv storage.Store
	if cfg.Progress == nil || cfg.Badges == nil {
		kv = storage.NewMemoryStore()
	}
	progressStore := cfg.Progress
	if progressStore == nil {
		progressStore = progress.NewStore(kv)
	}
	badgeStore := cfg.Badges
	if badgeStore == nil {
		badgeStore = progress.NewBadgeStore(kv)
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog:  cfg.Catalog,
		progress: progressStore,
		badges:   badgeStore,
		events:   events,
		notifier: cfg.Notifier,
		now:      now,
	}, nil
}

// Catalog returns the content the service scores against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Submit scores answers for an exercise, records the attempt and awards any
// badges it unlocks. answers maps question id to selected option id.
func (s *Service) Submit(ctx context.Context, exerciseID string, answers map[string]string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	ex, ok := s.catalog.Exercise(exerciseID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}
	if missing := quiz.Unanswered(ex, answers); len(missing) > 0 {
		return Outcome{}, fmt.Errorf("%w: missing %s", ErrIncompleteSubmission, strings.Join(missing, ", "))
	}

	result := quiz.Score(ex, answers)

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.progress.Load()
	if err != nil {
		slog.Error("failed to read progress", "exercise_id", exerciseID, "error", err)
		return Outcome{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	attempts := 0
	for _, prev := range records {
		if prev.ExerciseID == exerciseID {
			attempts = prev.AttemptCount
			break
		}
	}

	now := s.now().UTC()
	record := progress.ExerciseProgress{
		ExerciseID:   exerciseID,
		Completed:    result.Passed,
		Score:        result.Score,
		Answers:      make([]progress.Answer, 0, len(ex.Quiz)),
		AttemptCount: attempts + 1,
	}
	for _, q := range ex.Quiz {
		record.Answers = append(record.Answers, progress.Answer{
			QuestionID:       q.ID,
			SelectedOptionID: answers[q.ID],
		})
	}
	if result.Passed {
		record.CompletedDate = &now
	}

	slog.Info("quiz submitted",
		"exercise_id", exerciseID,
		"score", result.Score,
		"total_points", result.TotalPoints,
		"passed", result.Passed,
		"attempt", record.AttemptCount,
	)
	s.logEvent(Event{
		EventType:  EventQuizSubmitted,
		ExerciseID: exerciseID,
		Data: map[string]any{
			"score":   result.Score,
			"passed":  result.Passed,
			"attempt": record.AttemptCount,
		},
		CreatedAt: now,
	})

	newBadges := s.saveProgress(ctx, record)
	return Outcome{Result: result, Progress: record, NewBadges: newBadges}, nil
}

// SaveProgress stores a record and then evaluates badges against the updated
// state. Store failures are logged, never returned. It returns the badges
// newly earned by this call.
func (s *Service) SaveProgress(ctx context.Context, p progress.ExerciseProgress) []progress.UserBadge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveProgress(ctx, p)
}

// EvaluateBadges re-checks every badge against the stored progress.
func (s *Service) EvaluateBadges(ctx context.Context) []progress.UserBadge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awardBadges(ctx)
}

func (s *Service) saveProgress(ctx context.Context, p progress.ExerciseProgress) []progress.UserBadge {
	if err := s.progress.Save(p); err != nil {
		slog.Error("failed to save progress", "exercise_id", p.ExerciseID, "error", err)
		s.logEvent(Event{
			EventType:  EventProgressWriteFailed,
			ExerciseID: p.ExerciseID,
			Data:       map[string]any{"error": err.Error()},
		})
	}
	return s.awardBadges(ctx)
}

// awardBadges only writes when both stored sets were read, so a failing
// backend never replaces earned badges with a partial set.
func (s *Service) awardBadges(ctx context.Context) []progress.UserBadge {
	earned, err := s.badges.Load()
	if err != nil {
		slog.Error("skipping badge evaluation", "error", err)
		return []progress.UserBadge{}
	}
	records, err := s.progress.Load()
	if err != nil {
		slog.Error("skipping badge evaluation", "error", err)
		return []progress.UserBadge{}
	}
	newBadges := badge.Evaluate(badge.Input{
		Definitions: s.catalog.Badges(),
		Exercises:   s.catalog.Exercises(),
		Progress:    records,
		Earned:      earned,
		Now:         s.now().UTC(),
	})
	if len(newBadges) == 0 {
		return []progress.UserBadge{}
	}

	all := make([]progress.UserBadge, 0, len(earned)+len(newBadges))
	all = append(all, earned...)
	all = append(all, newBadges...)
	if err := s.badges.Save(all); err != nil {
		slog.Error("failed to save badges", "count", len(newBadges), "error", err)
	}

	for _, b := range newBadges {
		slog.Info("badge earned", "badge_id", b.ID, "type", b.Type)
		s.logEvent(Event{
			EventType: EventBadgeEarned,
			BadgeID:   b.ID,
			Data:      map[string]any{"type": string(b.Type), "name": b.Name},
			CreatedAt: b.EarnedDate,
		})
	}
	if s.notifier != nil {
		s.notifier.NotifyBadges(ctx, newBadges)
	}
	return newBadges
}

// Progress returns every stored exercise record.
func (s *Service) Progress() []progress.ExerciseProgress {
	return s.progress.All()
}

// ExerciseProgress returns the stored record for one exercise.
func (s *Service) ExerciseProgress(exerciseID string) (progress.ExerciseProgress, bool) {
	return s.find(exerciseID)
}

// Badges returns the earned badges in award order.
func (s *Service) Badges() []progress.UserBadge {
	return s.badges.All()
}

func (s *Service) find(exerciseID string) (progress.ExerciseProgress, bool) {
	for _, p := range s.progress.All() {
		if p.ExerciseID == exerciseID {
			return p, true
		}
	}
	return progress.ExerciseProgress{}, false
}

func (s *Service) logEvent(e Event) {
	if err := s.events.LogEvent(e); err != nil {
		slog.Warn("failed to log event", "type", e.EventType, "error", err)
	}
}
