// Package quiz scores exercise submissions.
package quiz

import "github.com/p-n-ai/pai-testlab/internal/catalog"

// QuestionResult is the outcome for a single question.
type QuestionResult struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId,omitempty"`
	CorrectOptionID  string `json:"correctOptionId,omitempty"`
	Correct          bool   `json:"correct"`
	Points           int    `json:"points"`
	MaxPoints        int    `json:"maxPoints"`
	Explanation      string `json:"explanation,omitempty"`
	OptionFeedback   string `json:"optionFeedback,omitempty"`
}

// Result is the scored outcome of a submission.
type Result struct {
	ExerciseID   string           `json:"exerciseId"`
	Score        int              `json:"score"`
	TotalPoints  int              `json:"totalPoints"`
	PassingScore int              `json:"passingScore"`
	Passed       bool             `json:"passed"`
	Questions    []QuestionResult `json:"questions"`
}

// Score grades answers (question ID -> selected option ID) against an
// exercise. A question earns its points only when the selected option is
// marked correct; missing answers and unknown options earn zero.
func Score(ex catalog.Exercise, answers map[string]string) Result {
	res := Result{
		ExerciseID:   ex.ID,
		TotalPoints:  ex.TotalPoints,
		PassingScore: ex.PassingScore,
		Questions:    make([]QuestionResult, 0, len(ex.Quiz)),
	}

	for _, q := range ex.Quiz {
		qr := QuestionResult{
			QuestionID:  q.ID,
			MaxPoints:   q.Points,
			Explanation: q.Explanation,
		}
		for _, o := range q.Options {
			if o.IsCorrect {
				qr.CorrectOptionID = o.ID
				break
			}
		}

		if selected, ok := answers[q.ID]; ok {
			qr.SelectedOptionID = selected
			if opt, found := q.Option(selected); found {
				qr.OptionFeedback = opt.Explanation
				if opt.IsCorrect {
					qr.Correct = true
					qr.Points = q.Points
				}
			}
		}

		res.Score += qr.Points
		res.Questions = append(res.Questions, qr)
	}

	res.Passed = res.Score >= ex.PassingScore
	return res
}

// Unanswered returns the IDs of questions with no selected option, in quiz
// order.
func Unanswered(ex catalog.Exercise, answers map[string]string) []string {
	var missing []string
	for _, q := range ex.Quiz {
		if answers[q.ID] == "" {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// Ratio returns score/total, or 0 when total is not positive.
func Ratio(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total)
}
