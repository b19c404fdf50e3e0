package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-testlab/internal/catalog"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}

	ex, ok := c.Exercise("ex-001")
	if !ok {
		t.Fatal("Exercise(ex-001) not found")
	}
	if ex.TotalPoints != 40 || ex.PassingScore != 25 {
		t.Errorf("ex-001 total/passing = %d/%d, want 40/25", ex.TotalPoints, ex.PassingScore)
	}
	if len(ex.Quiz) != 4 {
		t.Errorf("len(ex-001 quiz) = %d, want 4", len(ex.Quiz))
	}

	badge, ok := c.Badge("badge-technique-001")
	if !ok {
		t.Fatal("Badge(badge-technique-001) not found")
	}
	if badge.Requirement.Type != catalog.RequirementExerciseCompletion {
		t.Errorf("requirement type = %q, want exercise_completion", badge.Requirement.Type)
	}
	if badge.Requirement.Threshold == nil || *badge.Requirement.Threshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", badge.Requirement.Threshold)
	}

	if c.Digest() == "" {
		t.Error("Digest() is empty")
	}
}

func TestLoadEmbedded_CatalogOrder(t *testing.T) {
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}

	badges := c.Badges()
	want := []string{"badge-technique-001", "badge-technique-002", "badge-category-001", "badge-achievement-all"}
	if len(badges) != len(want) {
		t.Fatalf("len(Badges()) = %d, want %d", len(badges), len(want))
	}
	for i, id := range want {
		if badges[i].ID != id {
			t.Errorf("Badges()[%d] = %q, want %q", i, badges[i].ID, id)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `
categories:
  - id: blackbox
    name: Black-box
`)
	writeFile(t, dir, "nested/b.yml", `
exercises:
  - id: ex-1
    category_id: blackbox
    passing_score: 5
    total_points: 10
    quiz:
      - id: q1
        points: 10
        options:
          - id: a
            is_correct: true
`)
	writeFile(t, dir, "README.md", "# not yaml")

	c, err := catalog.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if _, ok := c.Category("blackbox"); !ok {
		t.Error("Category(blackbox) not found")
	}
	if got := c.ExercisesInCategory("blackbox"); len(got) != 1 {
		t.Errorf("ExercisesInCategory(blackbox) = %d exercises, want 1", len(got))
	}
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := catalog.LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("LoadDir() should fail for a missing directory")
	}
}

func TestLoadDir_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "exercises: [")

	if _, err := catalog.LoadDir(dir); err == nil {
		t.Fatal("LoadDir() should fail on malformed YAML")
	}
}

func TestNew_Validation(t *testing.T) {
	threshold := 1.5

	tests := []struct {
		name      string
		exercises []catalog.Exercise
		badges    []catalog.BadgeDefinition
		wantErr   bool
	}{
		{
			name:      "valid",
			exercises: []catalog.Exercise{exercise("ex-1", 10, 5, 5, 5)},
		},
		{
			name:      "total points mismatch",
			exercises: []catalog.Exercise{exercise("ex-1", 12, 5, 5)},
			wantErr:   true,
		},
		{
			name:      "passing score above total",
			exercises: []catalog.Exercise{exercise("ex-1", 10, 11, 10)},
			wantErr:   true,
		},
		{
			name:      "no questions",
			exercises: []catalog.Exercise{exercise("ex-1", 0, 0)},
			wantErr:   true,
		},
		{
			name:      "duplicate exercise",
			exercises: []catalog.Exercise{exercise("ex-1", 5, 1, 5), exercise("ex-1", 5, 1, 5)},
			wantErr:   true,
		},
		{
			name: "unknown requirement type",
			badges: []catalog.BadgeDefinition{{
				ID: "b", Type: catalog.BadgeAchievement,
				Requirement: catalog.Requirement{Type: "streak"},
			}},
			wantErr: true,
		},
		{
			name: "unknown badge type",
			badges: []catalog.BadgeDefinition{{
				ID: "b", Type: "secret",
				Requirement: catalog.Requirement{Type: catalog.RequirementAllTechniques},
			}},
			wantErr: true,
		},
		{
			name: "threshold out of range",
			badges: []catalog.BadgeDefinition{{
				ID: "b", Type: catalog.BadgeTechnique,
				Requirement: catalog.Requirement{Type: catalog.RequirementExerciseCompletion, Threshold: &threshold},
			}},
			wantErr: true,
		},
		{
			name: "dangling references only warn",
			badges: []catalog.BadgeDefinition{{
				ID: "b", Type: catalog.BadgeTechnique,
				Requirement: catalog.Requirement{Type: catalog.RequirementExerciseCompletion, ExerciseIDs: []string{"ghost"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.New(nil, nil, tt.exercises, tt.badges)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, catalog.ErrInvalid) {
				t.Errorf("New() error = %v, want wrapped ErrInvalid", err)
			}
		})
	}
}

func TestLookups(t *testing.T) {
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}

	if _, ok := c.Technique("equivalence-partitioning"); !ok {
		t.Error("Technique(equivalence-partitioning) not found")
	}
	if _, ok := c.Exercise("nope"); ok {
		t.Error("Exercise(nope) should not be found")
	}
	if got := c.ExercisesForTechnique("boundary-value-analysis"); len(got) != 1 || got[0].ID != "ex-002" {
		t.Errorf("ExercisesForTechnique(boundary-value-analysis) = %v, want [ex-002]", got)
	}
	if got := c.TechniquesInCategory("whitebox"); len(got) != 2 {
		t.Errorf("TechniquesInCategory(whitebox) = %d, want 2", len(got))
	}
	if got := c.CategoryIDs(); len(got) != 1 || got[0] != "blackbox" {
		t.Errorf("CategoryIDs() = %v, want [blackbox]", got)
	}

	ex, _ := c.Exercise("ex-001")
	q, ok := ex.Question("q-001-2")
	if !ok {
		t.Fatal("Question(q-001-2) not found")
	}
	if opt, ok := q.Option("q-001-2-b"); !ok || !opt.IsCorrect {
		t.Errorf("Option(q-001-2-b) = %+v, %v; want correct option", opt, ok)
	}
}

// exercise builds an exercise with one single-option question per points value.
func exercise(id string, total, passing int, points ...int) catalog.Exercise {
	ex := catalog.Exercise{
		ID:           id,
		CategoryID:   "cat",
		TechniqueID:  "tech",
		TotalPoints:  total,
		PassingScore: passing,
	}
	for i, p := range points {
		qid := id + "-q" + string(rune('1'+i))
		ex.Quiz = append(ex.Quiz, catalog.QuizQuestion{
			ID:     qid,
			Points: p,
			Options: []catalog.QuizOption{
				{ID: qid + "-ok", IsCorrect: true},
				{ID: qid + "-bad"},
			},
		})
	}
	return ex
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
