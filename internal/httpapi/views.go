package httpapi

import "github.com/p-n-ai/pai-testlab/internal/catalog"

// exerciseView is an exercise as shown before submission: correct flags and
// explanations stay on the server.
type exerciseView struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Objective     string         `json:"objective"`
	Scenario      string         `json:"scenario"`
	Steps         []string       `json:"steps"`
	TechniqueID   string         `json:"techniqueId"`
	CategoryID    string         `json:"categoryId"`
	PassingScore  int            `json:"passingScore"`
	TotalPoints   int            `json:"totalPoints"`
	EstimatedTime string         `json:"estimatedTime"`
	Quiz          []questionView `json:"quiz"`
}

type questionView struct {
	ID         string             `json:"id"`
	Text       string             `json:"text"`
	Difficulty catalog.Difficulty `json:"difficulty"`
	Points     int                `json:"points"`
	Options    []optionView       `json:"options"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func newExerciseView(e catalog.Exercise) exerciseView {
	v := exerciseView{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Objective:     e.Objective,
		Scenario:      e.Scenario,
		Steps:         e.Steps,
		TechniqueID:   e.TechniqueID,
		CategoryID:    e.CategoryID,
		PassingScore:  e.PassingScore,
		TotalPoints:   e.TotalPoints,
		EstimatedTime: e.EstimatedTime,
		Quiz:          make([]questionView, 0, len(e.Quiz)),
	}
	for _, q := range e.Quiz {
		qv := questionView{
			ID:         q.ID,
			Text:       q.Text,
			Difficulty: q.Difficulty,
			Points:     q.Points,
			Options:    make([]optionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, optionView{ID: o.ID, Text: o.Text})
		}
		v.Quiz = append(v.Quiz, qv)
	}
	return v
}

func newExerciseViews(exercises []catalog.Exercise) []exerciseView {
	out := make([]exerciseView, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, newExerciseView(e))
	}
	return out
}
