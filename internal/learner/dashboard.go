package learner

import (
	"slices"
	"time"

	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/progress"
)

// Exercise statuses shown on the dashboard.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

const recentLimit = 5

// Dashboard summarises the learner's progress.
type Dashboard struct {
	TotalExercises     int                `json:"totalExercises"`
	CompletedExercises int                `json:"completedExercises"`
	Percentage         int                `json:"percentage"`
	Categories         []CategoryProgress `json:"categories"`
	Recent             []RecentCompletion `json:"recent"`
	Badges             BadgeGroups        `json:"badges"`
	AvailableBadges    int                `json:"availableBadges"`
	Exercises          []ExerciseStatus   `json:"exercises"`
}

// CategoryProgress counts completed exercises in one category.
type CategoryProgress struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
	Percentage int    `json:"percentage"`
}

// RecentCompletion is a completed exercise, most recent first.
type RecentCompletion struct {
	ExerciseID    string    `json:"exerciseId"`
	Title         string    `json:"title"`
	Score         int       `json:"score"`
	TotalPoints   int       `json:"totalPoints"`
	CompletedDate time.Time `json:"completedDate"`
}

// BadgeGroups splits earned badges by type.
type BadgeGroups struct {
	Technique   []progress.UserBadge `json:"technique"`
	Category    []progress.UserBadge `json:"category"`
	Achievement []progress.UserBadge `json:"achievement"`
}

// Count returns the number of grouped badges.
func (g BadgeGroups) Count() int {
	return len(g.Technique) + len(g.Category) + len(g.Achievement)
}

// ExerciseStatus is the learner's standing on one exercise.
type ExerciseStatus struct {
	ExerciseID   string `json:"exerciseId"`
	Title        string `json:"title"`
	CategoryID   string `json:"categoryId"`
	TechniqueID  string `json:"techniqueId"`
	Status       string `json:"status"`
	Score        int    `json:"score"`
	TotalPoints  int    `json:"totalPoints"`
	ScorePercent int    `json:"scorePercent"`
	Attempts     int    `json:"attempts"`
}

// Dashboard aggregates stored progress and badges against the catalog.
func (s *Service) Dashboard() Dashboard {
	records := make(map[string]progress.ExerciseProgress)
	for _, p := range s.progress.All() {
		if _, dup := records[p.ExerciseID]; !dup {
			records[p.ExerciseID] = p
		}
	}

	d := Dashboard{
		Categories:      []CategoryProgress{},
		Recent:          []RecentCompletion{},
		Exercises:       []ExerciseStatus{},
		Badges:          groupBadges(s.badges.All()),
		AvailableBadges: len(s.catalog.Badges()),
	}

	for _, ex := range s.catalog.Exercises() {
		d.TotalExercises++
		status := ExerciseStatus{
			ExerciseID:  ex.ID,
			Title:       ex.Title,
			CategoryID:  ex.CategoryID,
			TechniqueID: ex.TechniqueID,
			Status:      StatusNotStarted,
			TotalPoints: ex.TotalPoints,
		}
		if rec, ok := records[ex.ID]; ok {
			status.Status = StatusInProgress
			status.Score = rec.Score
			status.ScorePercent = percent(rec.Score, ex.TotalPoints)
			status.Attempts = rec.AttemptCount
			if rec.Completed {
				status.Status = StatusCompleted
				d.CompletedExercises++
				if rec.CompletedDate != nil {
					d.Recent = append(d.Recent, RecentCompletion{
						ExerciseID:    ex.ID,
						Title:         ex.Title,
						Score:         rec.Score,
						TotalPoints:   ex.TotalPoints,
						CompletedDate: *rec.CompletedDate,
					})
				}
			}
		}
		d.Exercises = append(d.Exercises, status)
	}
	d.Percentage = percent(d.CompletedExercises, d.TotalExercises)

	for _, cat := range s.catalog.Categories() {
		cp := CategoryProgress{CategoryID: cat.ID, Name: cat.Name}
		for _, ex := range s.catalog.ExercisesInCategory(cat.ID) {
			cp.Total++
			if rec, ok := records[ex.ID]; ok && rec.Completed {
				cp.Completed++
			}
		}
		cp.Percentage = percent(cp.Completed, cp.Total)
		d.Categories = append(d.Categories, cp)
	}

	slices.SortStableFunc(d.Recent, func(a, b RecentCompletion) int {
		return b.CompletedDate.Compare(a.CompletedDate)
	})
	if len(d.Recent) > recentLimit {
		d.Recent = d.Recent[:recentLimit]
	}
	return d
}

func groupBadges(badges []progress.UserBadge) BadgeGroups {
	g := BadgeGroups{
		Technique:   []progress.UserBadge{},
		Category:    []progress.UserBadge{},
		Achievement: []progress.UserBadge{},
	}
	for _, b := range badges {
		switch b.Type {
		case catalog.BadgeTechnique:
			g.Technique = append(g.Technique, b)
		case catalog.BadgeCategory:
			g.Category = append(g.Category, b)
		case catalog.BadgeAchievement:
			g.Achievement = append(g.Achievement, b)
		}
	}
	return g
}

// percent is floor(part/total*100), 0 when total is not positive.
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return part * 100 / total
}
