// Package badge decides which badges a learner has newly earned.
package badge

import (
	"time"

	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/progress"
	"github.com/p-n-ai/pai-testlab/internal/quiz"
)

// Input is everything an evaluation looks at.
type Input struct {
	Definitions []catalog.BadgeDefinition
	Exercises   []catalog.Exercise
	Progress    []progress.ExerciseProgress
	Earned      []progress.UserBadge
	Now         time.Time
}

// Evaluate returns the badges whose requirement is satisfied and that are not
// already earned, in definition order. It has no side effects.
func Evaluate(in Input) []progress.UserBadge {
	exercises := make(map[string]catalog.Exercise, len(in.Exercises))
	for _, e := range in.Exercises {
		exercises[e.ID] = e
	}
	records := make(map[string]progress.ExerciseProgress, len(in.Progress))
	for _, p := range in.Progress {
		if _, dup := records[p.ExerciseID]; !dup {
			records[p.ExerciseID] = p
		}
	}
	have := make(map[string]bool, len(in.Earned))
	for _, b := range in.Earned {
		have[b.ID] = true
	}

	r := rules{exercises: exercises, records: records, ordered: in.Exercises}

	var earned []progress.UserBadge
	for _, def := range in.Definitions {
		if have[def.ID] {
			continue
		}
		if !r.satisfied(def) {
			continue
		}
		have[def.ID] = true
		earned = append(earned, progress.UserBadge{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			ImageURL:    def.ImageURL,
			Type:        def.Type,
			RelatedID:   def.RelatedID,
			EarnedDate:  in.Now,
		})
	}
	return earned
}

type rules struct {
	exercises map[string]catalog.Exercise
	records   map[string]progress.ExerciseProgress
	ordered   []catalog.Exercise
}

func (r rules) satisfied(def catalog.BadgeDefinition) bool {
	req := def.Requirement
	switch req.Type {
	case catalog.RequirementExerciseCompletion:
		return r.allCompleted(req.ExerciseIDs, req.Threshold)
	case catalog.RequirementCategoryMastery:
		var ids []string
		for _, e := range r.ordered {
			if e.CategoryID == def.RelatedID {
				ids = append(ids, e.ID)
			}
		}
		return r.allCompleted(ids, req.Threshold)
	case catalog.RequirementAllTechniques:
		return r.everyCategoryCompleted()
	default:
		return false
	}
}

// allCompleted reports whether every listed exercise is completed and, when a
// threshold is set, the mean score ratio reaches it. An empty list is never
// satisfied, nor is a list naming an exercise that is unknown or has no points.
func (r rules) allCompleted(ids []string, threshold *float64) bool {
	if len(ids) == 0 {
		return false
	}

	var sum float64
	for _, id := range ids {
		ex, ok := r.exercises[id]
		if !ok || ex.TotalPoints <= 0 {
			return false
		}
		rec, ok := r.records[id]
		if !ok || !rec.Completed {
			return false
		}
		if threshold != nil {
			sum += quiz.Ratio(rec.Score, ex.TotalPoints)
		}
	}

	if threshold == nil {
		return true
	}
	return sum/float64(len(ids)) >= *threshold
}

// everyCategoryCompleted requires every exercise of every category that has
// exercises to be completed. A catalog without exercises satisfies it.
func (r rules) everyCategoryCompleted() bool {
	byCategory := make(map[string][]string)
	var order []string
	for _, e := range r.ordered {
		if _, ok := byCategory[e.CategoryID]; !ok {
			order = append(order, e.CategoryID)
		}
		byCategory[e.CategoryID] = append(byCategory[e.CategoryID], e.ID)
	}
	for _, cat := range order {
		if !r.allCompleted(byCategory[cat], nil) {
			return false
		}
	}
	return true
}
