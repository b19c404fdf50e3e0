package badge_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-testlab/internal/badge"
	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/progress"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func threshold(v float64) *float64 { return &v }

func ids(badges []progress.UserBadge) []string {
	out := []string{}
	for _, b := range badges {
		out = append(out, b.ID)
	}
	return out
}

func done(id string, score int) progress.ExerciseProgress {
	return progress.ExerciseProgress{ExerciseID: id, Completed: true, Score: score, AttemptCount: 1}
}

func exercises() []catalog.Exercise {
	return []catalog.Exercise{
		{ID: "ex-001", CategoryID: "blackbox", TotalPoints: 40, PassingScore: 25},
		{ID: "ex-002", CategoryID: "blackbox", TotalPoints: 40, PassingScore: 25},
		{ID: "ex-003", CategoryID: "whitebox", TotalPoints: 20, PassingScore: 10},
	}
}

func TestEvaluate_ExerciseCompletion(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID:   "badge-technique-001",
		Name: "Partition Pro",
		Type: catalog.BadgeTechnique,
		Requirement: catalog.Requirement{
			Type:        catalog.RequirementExerciseCompletion,
			ExerciseIDs: []string{"ex-001"},
			Threshold:   threshold(0.8),
		},
	}

	tests := []struct {
		name     string
		progress []progress.ExerciseProgress
		want     []string
	}{
		{"no progress", nil, []string{}},
		{"full marks", []progress.ExerciseProgress{done("ex-001", 40)}, []string{"badge-technique-001"}},
		{"exactly threshold", []progress.ExerciseProgress{done("ex-001", 32)}, []string{"badge-technique-001"}},
		{"below threshold", []progress.ExerciseProgress{done("ex-001", 31)}, []string{}},
		{"attempted but not completed", []progress.ExerciseProgress{{ExerciseID: "ex-001", Score: 5, AttemptCount: 1}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := badge.Evaluate(badge.Input{
				Definitions: []catalog.BadgeDefinition{def},
				Exercises:   exercises(),
				Progress:    tt.progress,
				Now:         now,
			})
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluate_ExerciseCompletionMeanOverExercises(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID: "pair",
		Requirement: catalog.Requirement{
			Type:        catalog.RequirementExerciseCompletion,
			ExerciseIDs: []string{"ex-001", "ex-003"},
			Threshold:   threshold(0.75),
		},
	}

	// (1.0 + 0.5) / 2 = 0.75
	got := badge.Evaluate(badge.Input{
		Definitions: []catalog.BadgeDefinition{def},
		Exercises:   exercises(),
		Progress:    []progress.ExerciseProgress{done("ex-001", 40), done("ex-003", 10)},
		Now:         now,
	})
	if len(got) != 1 {
		t.Errorf("Evaluate() = %v, want pair badge", ids(got))
	}
}

func TestEvaluate_NoThresholdNeedsOnlyCompletion(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID:          "finisher",
		Requirement: catalog.Requirement{Type: catalog.RequirementExerciseCompletion, ExerciseIDs: []string{"ex-003"}},
	}
	got := badge.Evaluate(badge.Input{
		Definitions: []catalog.BadgeDefinition{def},
		Exercises:   exercises(),
		Progress:    []progress.ExerciseProgress{done("ex-003", 10)},
		Now:         now,
	})
	if len(got) != 1 {
		t.Errorf("Evaluate() = %v, want finisher", ids(got))
	}
}

func TestEvaluate_Unsatisfiable(t *testing.T) {
	tests := []struct {
		name string
		def  catalog.BadgeDefinition
	}{
		{
			"empty exercise list",
			catalog.BadgeDefinition{ID: "x", Requirement: catalog.Requirement{Type: catalog.RequirementExerciseCompletion}},
		},
		{
			"unknown exercise",
			catalog.BadgeDefinition{ID: "x", Requirement: catalog.Requirement{
				Type: catalog.RequirementExerciseCompletion, ExerciseIDs: []string{"ex-001", "ex-404"},
			}},
		},
		{
			"empty category",
			catalog.BadgeDefinition{ID: "x", RelatedID: "experience", Requirement: catalog.Requirement{Type: catalog.RequirementCategoryMastery}},
		},
		{
			"unknown requirement type",
			catalog.BadgeDefinition{ID: "x", Requirement: catalog.Requirement{Type: "streak"}},
		},
	}

	all := []progress.ExerciseProgress{done("ex-001", 40), done("ex-002", 40), done("ex-003", 20)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := badge.Evaluate(badge.Input{
				Definitions: []catalog.BadgeDefinition{tt.def},
				Exercises:   exercises(),
				Progress:    all,
				Now:         now,
			})
			if len(got) != 0 {
				t.Errorf("Evaluate() = %v, want none", ids(got))
			}
		})
	}
}

func TestEvaluate_ZeroPointExerciseNeverSatisfies(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID:          "x",
		Requirement: catalog.Requirement{Type: catalog.RequirementExerciseCompletion, ExerciseIDs: []string{"ex-0"}},
	}
	got := badge.Evaluate(badge.Input{
		Definitions: []catalog.BadgeDefinition{def},
		Exercises:   []catalog.Exercise{{ID: "ex-0", CategoryID: "c"}},
		Progress:    []progress.ExerciseProgress{done("ex-0", 0)},
		Now:         now,
	})
	if len(got) != 0 {
		t.Errorf("Evaluate() = %v, want none", ids(got))
	}
}

func TestEvaluate_CategoryMastery(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID:        "badge-category-001",
		Type:      catalog.BadgeCategory,
		RelatedID: "blackbox",
		Requirement: catalog.Requirement{
			Type:      catalog.RequirementCategoryMastery,
			Threshold: threshold(0.7),
		},
	}

	tests := []struct {
		name     string
		progress []progress.ExerciseProgress
		want     int
	}{
		{"one of two done", []progress.ExerciseProgress{done("ex-001", 40)}, 0},
		{"both done above threshold", []progress.ExerciseProgress{done("ex-001", 40), done("ex-002", 20)}, 1},
		{"both done below threshold", []progress.ExerciseProgress{done("ex-001", 25), done("ex-002", 25)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := badge.Evaluate(badge.Input{
				Definitions: []catalog.BadgeDefinition{def},
				Exercises:   exercises(),
				Progress:    tt.progress,
				Now:         now,
			})
			if len(got) != tt.want {
				t.Errorf("Evaluate() = %v, want %d badges", ids(got), tt.want)
			}
		})
	}
}

func TestEvaluate_AllTechniques(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID:          "badge-achievement-all",
		Type:        catalog.BadgeAchievement,
		Requirement: catalog.Requirement{Type: catalog.RequirementAllTechniques},
	}

	partial := badge.Evaluate(badge.Input{
		Definitions: []catalog.BadgeDefinition{def},
		Exercises:   exercises(),
		Progress:    []progress.ExerciseProgress{done("ex-001", 40), done("ex-002", 40)},
		Now:         now,
	})
	if len(partial) != 0 {
		t.Errorf("Evaluate() with whitebox incomplete = %v, want none", ids(partial))
	}

	full := badge.Evaluate(badge.Input{
		Definitions: []catalog.BadgeDefinition{def},
		Exercises:   exercises(),
		Progress:    []progress.ExerciseProgress{done("ex-001", 25), done("ex-002", 25), done("ex-003", 10)},
		Now:         now,
	})
	if len(full) != 1 {
		t.Errorf("Evaluate() with every exercise done = %v, want achievement", ids(full))
	}

	empty := badge.Evaluate(badge.Input{Definitions: []catalog.BadgeDefinition{def}, Now: now})
	if len(empty) != 1 {
		t.Errorf("Evaluate() with no exercises = %v, want achievement", ids(empty))
	}
}

func TestEvaluate_SkipsEarnedAndDuplicates(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID:          "badge-technique-001",
		Requirement: catalog.Requirement{Type: catalog.RequirementExerciseCompletion, ExerciseIDs: []string{"ex-001"}},
	}
	in := badge.Input{
		Definitions: []catalog.BadgeDefinition{def, def},
		Exercises:   exercises(),
		Progress:    []progress.ExerciseProgress{done("ex-001", 40)},
		Now:         now,
	}

	first := badge.Evaluate(in)
	if len(first) != 1 {
		t.Fatalf("Evaluate() = %v, want one award for duplicated definition", ids(first))
	}

	in.Earned = first
	if again := badge.Evaluate(in); len(again) != 0 {
		t.Errorf("Evaluate() after earning = %v, want none", ids(again))
	}
}

func TestEvaluate_CopiesDefinitionFields(t *testing.T) {
	def := catalog.BadgeDefinition{
		ID:          "badge-category-001",
		Name:        "Black-box Master",
		Description: "Master every black-box exercise",
		ImageURL:    "/badges/blackbox.svg",
		Type:        catalog.BadgeCategory,
		RelatedID:   "blackbox",
		Requirement: catalog.Requirement{Type: catalog.RequirementCategoryMastery},
	}

	got := badge.Evaluate(badge.Input{
		Definitions: []catalog.BadgeDefinition{def},
		Exercises:   exercises(),
		Progress:    []progress.ExerciseProgress{done("ex-001", 40), done("ex-002", 40)},
		Now:         now,
	})

	want := []progress.UserBadge{{
		ID:          "badge-category-001",
		Name:        "Black-box Master",
		Description: "Master every black-box exercise",
		ImageURL:    "/badges/blackbox.svg",
		Type:        catalog.BadgeCategory,
		RelatedID:   "blackbox",
		EarnedDate:  now,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_EmbeddedCatalog(t *testing.T) {
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}

	tests := []struct {
		name     string
		progress []progress.ExerciseProgress
		want     []string
	}{
		{
			"ex-001 full marks",
			[]progress.ExerciseProgress{done("ex-001", 40)},
			[]string{"badge-technique-001"},
		},
		{
			"ex-001 partial score",
			[]progress.ExerciseProgress{{ExerciseID: "ex-001", Score: 5, AttemptCount: 1}},
			[]string{},
		},
		{
			"both black-box exercises",
			[]progress.ExerciseProgress{done("ex-001", 40), done("ex-002", 40)},
			[]string{"badge-technique-001", "badge-technique-002", "badge-category-001", "badge-achievement-all"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := badge.Evaluate(badge.Input{
				Definitions: c.Badges(),
				Exercises:   c.Exercises(),
				Progress:    tt.progress,
				Now:         now,
			})
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
