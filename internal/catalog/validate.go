package catalog

import (
	"errors"
	"fmt"
	"log/slog"
)

// validate enforces the load-time invariants. Problems that the badge rules
// already tolerate (dangling references, questions without a single correct
// option) are only logged.
func validate(doc document) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	categories := uniqueIDs("category", len(doc.Categories), func(i int) string { return doc.Categories[i].ID }, fail)
	techniques := uniqueIDs("technique", len(doc.Techniques), func(i int) string { return doc.Techniques[i].ID }, fail)
	exercises := uniqueIDs("exercise", len(doc.Exercises), func(i int) string { return doc.Exercises[i].ID }, fail)
	uniqueIDs("badge", len(doc.Badges), func(i int) string { return doc.Badges[i].ID }, fail)

	for _, t := range doc.Techniques {
		if !categories[t.CategoryID] {
			slog.Warn("technique references unknown category", "technique_id", t.ID, "category_id", t.CategoryID)
		}
	}

	for _, e := range doc.Exercises {
		sum := 0
		for _, q := range e.Quiz {
			sum += q.Points
			if q.Points < 0 {
				fail("exercise %s: question %s has negative points", e.ID, q.ID)
			}
			correct := 0
			for _, o := range q.Options {
				if o.IsCorrect {
					correct++
				}
			}
			if correct != 1 {
				slog.Warn("question should have exactly one correct option",
					"exercise_id", e.ID, "question_id", q.ID, "correct_options", correct)
			}
		}
		if e.TotalPoints <= 0 {
			fail("exercise %s: total_points must be positive, got %d", e.ID, e.TotalPoints)
		}
		if sum != e.TotalPoints {
			fail("exercise %s: total_points %d does not match question points %d", e.ID, e.TotalPoints, sum)
		}
		if e.PassingScore > e.TotalPoints {
			fail("exercise %s: passing_score %d exceeds total_points %d", e.ID, e.PassingScore, e.TotalPoints)
		}
		if !techniques[e.TechniqueID] {
			slog.Warn("exercise references unknown technique", "exercise_id", e.ID, "technique_id", e.TechniqueID)
		}
		if !categories[e.CategoryID] {
			slog.Warn("exercise references unknown category", "exercise_id", e.ID, "category_id", e.CategoryID)
		}
	}

	for _, b := range doc.Badges {
		switch b.Type {
		case BadgeTechnique, BadgeCategory, BadgeAchievement:
		default:
			fail("badge %s: unknown type %q", b.ID, b.Type)
		}
		if th := b.Requirement.Threshold; th != nil && (*th < 0 || *th > 1) {
			fail("badge %s: threshold %v outside [0,1]", b.ID, *th)
		}
		switch b.Requirement.Type {
		case RequirementExerciseCompletion:
			for _, id := range b.Requirement.ExerciseIDs {
				if !exercises[id] {
					slog.Warn("badge references unknown exercise", "badge_id", b.ID, "exercise_id", id)
				}
			}
		case RequirementCategoryMastery:
			if !categories[b.RelatedID] {
				slog.Warn("badge references unknown category", "badge_id", b.ID, "category_id", b.RelatedID)
			}
		case RequirementAllTechniques:
		default:
			fail("badge %s: unknown requirement type %q", b.ID, b.Requirement.Type)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func uniqueIDs(kind string, n int, id func(int) string, fail func(string, ...any)) map[string]bool {
	seen := make(map[string]bool, n)
	for i := range n {
		v := id(i)
		if v == "" {
			fail("%s at position %d has no id", kind, i)
			continue
		}
		if seen[v] {
			fail("duplicate %s id %q", kind, v)
		}
		seen[v] = true
	}
	return seen
}
