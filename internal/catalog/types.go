package catalog

// Category groups related testing techniques (e.g., black-box testing).
type Category struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// Technique is a named software-testing method with descriptive content.
type Technique struct {
	ID                string             `yaml:"id" json:"id"`
	Name              string             `yaml:"name" json:"name"`
	CategoryID        string             `yaml:"category_id" json:"categoryId"`
	ShortDescription  string             `yaml:"short_description" json:"shortDescription"`
	Description       string             `yaml:"description" json:"description"`
	Effectiveness     string             `yaml:"effectiveness" json:"effectiveness"`
	Complexity        string             `yaml:"complexity" json:"complexity"`
	Principles        []string           `yaml:"principles" json:"principles"`
	SuitableCases     []string           `yaml:"suitable_cases" json:"suitableCases"`
	History           string             `yaml:"history" json:"history"`
	Examples          []Example          `yaml:"examples" json:"examples"`
	ApplicationSteps  []ApplicationStep  `yaml:"application_steps" json:"applicationSteps"`
	Benefits          []Note             `yaml:"benefits" json:"benefits"`
	Drawbacks         []Note             `yaml:"drawbacks" json:"drawbacks"`
	EffectiveUsage    []string           `yaml:"effective_usage" json:"effectiveUsage"`
	RelatedTechniques []RelatedTechnique `yaml:"related_techniques" json:"relatedTechniques"`
}

// Example is a worked example attached to a technique.
type Example struct {
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	TestCases   *TestTable `yaml:"test_cases,omitempty" json:"testCases,omitempty"`
}

// TestTable is a small table of example test cases.
type TestTable struct {
	Title   string     `yaml:"title" json:"title"`
	Headers []string   `yaml:"headers" json:"headers"`
	Rows    [][]string `yaml:"rows" json:"rows"`
}

// ApplicationStep is one step in applying a technique.
type ApplicationStep struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Example     string `yaml:"example,omitempty" json:"example,omitempty"`
}

// Note is a titled benefit or drawback.
type Note struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// RelatedTechnique links to another technique.
type RelatedTechnique struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Exercise is a scored quiz bound to one technique.
type Exercise struct {
	ID            string         `yaml:"id" json:"id"`
	Title         string         `yaml:"title" json:"title"`
	Description   string         `yaml:"description" json:"description"`
	Objective     string         `yaml:"objective" json:"objective"`
	Scenario      string         `yaml:"scenario" json:"scenario"`
	Steps         []string       `yaml:"steps" json:"steps"`
	Quiz          []QuizQuestion `yaml:"quiz" json:"quiz"`
	TechniqueID   string         `yaml:"technique_id" json:"techniqueId"`
	CategoryID    string         `yaml:"category_id" json:"categoryId"`
	PassingScore  int            `yaml:"passing_score" json:"passingScore"`
	TotalPoints   int            `yaml:"total_points" json:"totalPoints"`
	EstimatedTime string         `yaml:"estimated_time" json:"estimatedTime"`
}

// Question returns the quiz question with the given ID.
func (e Exercise) Question(id string) (QuizQuestion, bool) {
	for _, q := range e.Quiz {
		if q.ID == id {
			return q, true
		}
	}
	return QuizQuestion{}, false
}

// Difficulty is an advisory tag on a question. It does not affect scoring.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	ID          string       `yaml:"id" json:"id"`
	Text        string       `yaml:"text" json:"text"`
	Options     []QuizOption `yaml:"options" json:"options"`
	Explanation string       `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Difficulty  Difficulty   `yaml:"difficulty" json:"difficulty"`
	Points      int          `yaml:"points" json:"points"`
}

// Option returns the option with the given ID.
func (q QuizQuestion) Option(id string) (QuizOption, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return QuizOption{}, false
}

// QuizOption is a selectable answer. Exactly one option per question is
// expected to be correct, but that is not enforced.
type QuizOption struct {
	ID          string `yaml:"id" json:"id"`
	Text        string `yaml:"text" json:"text"`
	IsCorrect   bool   `yaml:"is_correct" json:"isCorrect"`
	Explanation string `yaml:"explanation,omitempty" json:"explanation,omitempty"`
}

// BadgeType classifies a badge.
type BadgeType string

const (
	BadgeTechnique   BadgeType = "technique"
	BadgeCategory    BadgeType = "category"
	BadgeAchievement BadgeType = "achievement"
)

// RequirementType selects the rule used to award a badge.
type RequirementType string

const (
	RequirementExerciseCompletion RequirementType = "exercise_completion"
	RequirementCategoryMastery    RequirementType = "category_mastery"
	RequirementAllTechniques      RequirementType = "all_techniques"
)

// Requirement is the tagged unlock condition of a badge. ExerciseIDs is only
// meaningful for exercise_completion; Threshold is a score ratio in [0,1].
type Requirement struct {
	Type        RequirementType `yaml:"type" json:"type"`
	ExerciseIDs []string        `yaml:"exercise_ids,omitempty" json:"exerciseIds,omitempty"`
	Threshold   *float64        `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// BadgeDefinition describes an unlockable badge.
type BadgeDefinition struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	ImageURL    string      `yaml:"image_url" json:"imageUrl"`
	Type        BadgeType   `yaml:"type" json:"type"`
	RelatedID   string      `yaml:"related_id,omitempty" json:"relatedId,omitempty"`
	Requirement Requirement `yaml:"requirement" json:"requirement"`
}

// document is the shape of one catalog YAML file. Every list is optional.
type document struct {
	Categories []Category        `yaml:"categories"`
	Techniques []Technique       `yaml:"techniques"`
	Exercises  []Exercise        `yaml:"exercises"`
	Badges     []BadgeDefinition `yaml:"badges"`
}
