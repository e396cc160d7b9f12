package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Level is a difficulty tier. Every play-through visits the three tiers in
// order, answering QuestionsPerLevel scenarios in each.
type Level string

const (
	LevelBasic        Level = "basic"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

const (
	QuestionsPerLevel = 5
	TotalQuestions    = 3 * QuestionsPerLevel
	MaxExperience     = 300
	PassPercent       = 70
)

// Levels returns the tiers in play order.
func Levels() []Level {
	return []Level{LevelBasic, LevelIntermediate, LevelAdvanced}
}

// LevelForHistoryLength maps the number of answered questions to the active tier.
func LevelForHistoryLength(n int) Level {
	switch {
	case n < QuestionsPerLevel:
		return LevelBasic
	case n < 2*QuestionsPerLevel:
		return LevelIntermediate
	default:
		return LevelAdvanced
	}
}

// Option is one answer choice. Experience is a signed score delta; Tool, when
// set, is awarded on a correct pick. The explicit Correct flag is only used by
// load-time validation; at runtime correctness is always the max-experience rule.
type Option struct {
	Text       string `json:"text"`
	Outcome    string `json:"outcome"`
	Experience int    `json:"experience"`
	Tool       string `json:"tool,omitempty"`
	Correct    *bool  `json:"isCorrect,omitempty"`
}

// Scenario is one fixed multiple-choice question. Never mutated at runtime.
type Scenario struct {
	ID          int      `json:"id"`
	Level       Level    `json:"level"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []Option `json:"options"`
}

// CorrectOptionIndex returns the index of the canonical correct option: the
// one holding the maximum experience value.
func (s Scenario) CorrectOptionIndex() int {
	best := -1
	for i, opt := range s.Options {
		if best < 0 || opt.Experience > s.Options[best].Experience {
			best = i
		}
	}
	return best
}

// Quiz is a named scenario table with its scoring parameters. One Quiz value
// parameterizes the generic engine; quiz subjects differ only in data.
type Quiz struct {
	Name        string               `json:"name"`
	Title       string               `json:"title,omitempty"`
	MaxXP       int                  `json:"maxXP"`
	PassPercent int                  `json:"passPercent"`
	Pools       map[Level][]Scenario `json:"pools"`
}

// Pool returns the scenario pool for a tier.
func (q Quiz) Pool(level Level) []Scenario {
	return q.Pools[level]
}

// Status of a play-through. Empty means never started.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status ends the quiz.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// AnsweredQuestion is an immutable history record: the full scenario snapshot,
// the option the learner picked (with resolved correctness), and timing info.
type AnsweredQuestion struct {
	Scenario    Scenario `json:"scenario"`
	Selected    Option   `json:"selectedAnswer"`
	OptionIndex int      `json:"optionIndex"`
	Correct     bool     `json:"isCorrect"`
	TimeSpentMs *int64   `json:"timeSpent"`
	TimedOut    bool     `json:"timedOut"`
}

// ScenarioSet is a once-shuffled ordering of a level's pool, cached so that
// resuming never reshuffles already-seen questions. QuizName prevents a set
// computed for one quiz from leaking into another quiz's progress record.
type ScenarioSet struct {
	QuizName string `json:"quizName"`
	IDs      []int  `json:"ids"`
}

// UnmarshalJSON accepts both the id-list form and the legacy form where the
// whole scenario objects were persisted; the legacy form collapses to ids.
func (s *ScenarioSet) UnmarshalJSON(data []byte) error {
	var p struct {
		QuizName string `json:"quizName"`
		IDs      []int  `json:"ids"`
	}
	if err := json.Unmarshal(data, &p); err == nil && p.IDs != nil {
		s.QuizName = p.QuizName
		s.IDs = p.IDs
		return nil
	}
	var legacy struct {
		QuizName  string     `json:"quizName"`
		Scenarios []Scenario `json:"scenarios"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	s.QuizName = legacy.QuizName
	s.IDs = make([]int, 0, len(legacy.Scenarios))
	for _, sc := range legacy.Scenarios {
		s.IDs = append(s.IDs, sc.ID)
	}
	return nil
}

// Resolve maps the cached ids back onto the pool. It fails when any id is
// missing from the pool (stale cache after a data change).
func (s ScenarioSet) Resolve(pool []Scenario) ([]Scenario, error) {
	byID := make(map[int]Scenario, len(pool))
	for _, sc := range pool {
		byID[sc.ID] = sc
	}
	out := make([]Scenario, 0, len(s.IDs))
	for _, id := range s.IDs {
		sc, ok := byID[id]
		if !ok {
			return nil, ErrScenarioNotFound
		}
		out = append(out, sc)
	}
	return out, nil
}

// Progress is the persisted, resumable state of one learner in one quiz.
type Progress struct {
	QuizName             string                `json:"quizName"`
	Experience           int                   `json:"experience"`
	Tools                []string              `json:"tools"`
	CurrentScenarioIndex int                   `json:"currentScenarioIndex"`
	History              []AnsweredQuestion    `json:"questionHistory"`
	Status               Status                `json:"status"`
	ScorePercentage      int                   `json:"scorePercentage"`
	RandomizedSets       map[Level]ScenarioSet `json:"randomizedScenarios,omitempty"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// NewProgress returns a fresh in-progress record for a quiz.
func NewProgress(quizName string) Progress {
	return Progress{
		QuizName:       quizName,
		Status:         StatusInProgress,
		RandomizedSets: make(map[Level]ScenarioSet),
	}
}

// AddExperience applies a signed delta and clamps to [0, maxXP].
func (p *Progress) AddExperience(delta, maxXP int) {
	p.Experience += delta
	if p.Experience < 0 {
		p.Experience = 0
	}
	if p.Experience > maxXP {
		p.Experience = maxXP
	}
}

// AddTool records an earned tool, keeping the set ordered and duplicate-free.
func (p *Progress) AddTool(tool string) {
	if tool == "" {
		return
	}
	for _, t := range p.Tools {
		if t == tool {
			return
		}
	}
	p.Tools = append(p.Tools, tool)
	sort.Strings(p.Tools)
}

// CorrectCount evaluates history with the same rule used per answer.
func (p Progress) CorrectCount() int {
	n := 0
	for _, aq := range p.History {
		if aq.Correct {
			n++
		}
	}
	return n
}

// QuizResult is the lightweight completion summary kept on the user record;
// the scheduler's first-phase completion check reads these.
type QuizResult struct {
	QuizName          string `json:"quizName"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	Score             int    `json:"score"`
	Status            Status `json:"status"`
}

// User is the admin-facing account record.
type User struct {
	Username       string       `json:"username"`
	UserType       string       `json:"userType"`
	QuizResults    []QuizResult `json:"quizResults"`
	AllowedQuizzes []string     `json:"allowedQuizzes,omitempty"`
	HiddenQuizzes  []string     `json:"hiddenQuizzes,omitempty"`
}

// EffectiveScore derives a display score for a quiz from whatever data is
// available: the stored result score, else the history-based percentage,
// else answered-questions progress, else an XP estimate.
func (u User) EffectiveScore(quizName string, progress *Progress) int {
	for _, r := range u.QuizResults {
		if r.QuizName == quizName && r.Score > 0 {
			return r.Score
		}
	}
	if progress == nil {
		return 0
	}
	if n := len(progress.History); n > 0 {
		return int(float64(100*progress.CorrectCount())/float64(n) + 0.5)
	}
	if progress.CurrentScenarioIndex > 0 {
		return 100 * progress.CurrentScenarioIndex / TotalQuestions
	}
	if progress.Experience > 0 {
		return 100 * progress.Experience / MaxExperience
	}
	return 0
}

// AutoResetSetting is the admin-owned recurring reset schedule for one quiz.
// ResetPeriod is always whole minutes; legacy token forms are normalized at
// the boundary via NormalizeResetPeriod.
type AutoResetSetting struct {
	QuizName      string     `json:"quizName"`
	ResetPeriod   int        `json:"resetPeriod"`
	Enabled       bool       `json:"enabled"`
	LastReset     *time.Time `json:"lastReset,omitempty"`
	NextResetTime time.Time  `json:"nextResetTime"`
}

// Period returns the reset period as a duration.
func (s AutoResetSetting) Period() time.Duration {
	return time.Duration(s.ResetPeriod) * time.Minute
}

// ResetReport tallies one processed reset cycle for the admin view.
type ResetReport struct {
	QuizName  string    `json:"quizName"`
	Completed int       `json:"completed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	NextReset time.Time `json:"nextReset"`
}
