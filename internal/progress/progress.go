// Package progress persists a learner's exercise records and earned badges.
//
// Both stores read through the storage key-value interface. A missing or
// malformed document reads as an empty set and the problem is logged. A
// failing backend is reported by Load and Save so callers never write a
// partial set over data they could not read.
package progress

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/storage"
)

// Storage keys.
const (
	KeyExerciseProgress = "exercise_progress"
	KeyUserBadges       = "user_badges"
)

var (
	//go:embed schema/exercise_progress.json
	progressSchemaSrc string
	//go:embed schema/user_badges.json
	badgeSchemaSrc string

	progressSchema = storage.MustCompileSchema(progressSchemaSrc)
	badgeSchema    = storage.MustCompileSchema(badgeSchemaSrc)
)

// Answer is one recorded quiz selection.
type Answer struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId"`
}

// ExerciseProgress is the learner's latest attempt at one exercise.
type ExerciseProgress struct {
	ExerciseID    string     `json:"exerciseId"`
	Completed     bool       `json:"completed"`
	Score         int        `json:"score"`
	Answers       []Answer   `json:"answers"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
	AttemptCount  int        `json:"attemptCount"`
}

// UserBadge is a badge the learner has earned. Descriptive fields are copied
// from the definition at award time.
type UserBadge struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageURL    string            `json:"imageUrl"`
	Type        catalog.BadgeType `json:"type"`
	RelatedID   string            `json:"relatedId,omitempty"`
	EarnedDate  time.Time         `json:"earnedDate"`
}

// Store keeps the exercise_progress document.
type Store struct {
	kv storage.Store
}

// NewStore creates a progress store over kv.
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Load returns every stored record. It fails only when the backend read
// fails.
func (s *Store) Load() ([]ExerciseProgress, error) {
	var records []ExerciseProgress
	if _, err := storage.LoadJSON(s.kv, KeyExerciseProgress, progressSchema, &records); err != nil {
		if !errors.Is(err, storage.ErrMalformed) {
			return nil, fmt.Errorf("loading progress: %w", err)
		}
		slog.Warn("reading progress, treating as empty", "key", KeyExerciseProgress, "error", err)
		return []ExerciseProgress{}, nil
	}
	if records == nil {
		return []ExerciseProgress{}, nil
	}
	return records, nil
}

// All returns every stored record, or an empty set when it cannot be read.
func (s *Store) All() []ExerciseProgress {
	records, err := s.Load()
	if err != nil {
		slog.Error("failed to read progress", "error", err)
		return []ExerciseProgress{}
	}
	return records
}

// Get returns the record for one exercise.
func (s *Store) Get(exerciseID string) (ExerciseProgress, bool) {
	for _, p := range s.All() {
		if p.ExerciseID == exerciseID {
			return p, true
		}
	}
	return ExerciseProgress{}, false
}

// Save inserts or replaces the record for p.ExerciseID and persists the full
// set. AttemptCount is stored as given.
func (s *Store) Save(p ExerciseProgress) error {
	if p.ExerciseID == "" {
		return fmt.Errorf("saving progress: exercise id is empty")
	}
	if p.Answers == nil {
		p.Answers = []Answer{}
	}

	records, err := s.Load()
	if err != nil {
		return fmt.Errorf("saving progress for %s: %w", p.ExerciseID, err)
	}
	replaced := false
	for i := range records {
		if records[i].ExerciseID == p.ExerciseID {
			records[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, p)
	}

	if err := storage.SaveJSON(s.kv, KeyExerciseProgress, records); err != nil {
		return fmt.Errorf("saving progress for %s: %w", p.ExerciseID, err)
	}
	return nil
}

// BadgeStore keeps the user_badges document.
type BadgeStore struct {
	kv storage.Store
}

// NewBadgeStore creates a badge store over kv.
func NewBadgeStore(kv storage.Store) *BadgeStore {
	return &BadgeStore{kv: kv}
}

// Load returns every earned badge in award order. It fails only when the
// backend read fails.
func (s *BadgeStore) Load() ([]UserBadge, error) {
	var badges []UserBadge
	if _, err := storage.LoadJSON(s.kv, KeyUserBadges, badgeSchema, &badges); err != nil {
		if !errors.Is(err, storage.ErrMalformed) {
			return nil, fmt.Errorf("loading badges: %w", err)
		}
		slog.Warn("reading badges, treating as empty", "key", KeyUserBadges, "error", err)
		return []UserBadge{}, nil
	}
	if badges == nil {
		return []UserBadge{}, nil
	}
	return badges, nil
}

// All returns every earned badge, or an empty set when they cannot be read.
func (s *BadgeStore) All() []UserBadge {
	badges, err := s.Load()
	if err != nil {
		slog.Error("failed to read badges", "error", err)
		return []UserBadge{}
	}
	return badges
}

// Save overwrites the stored set with badges.
func (s *BadgeStore) Save(badges []UserBadge) error {
	if badges == nil {
		badges = []UserBadge{}
	}
	if err := storage.SaveJSON(s.kv, KeyUserBadges, badges); err != nil {
		return fmt.Errorf("saving badges: %w", err)
	}
	return nil
}
