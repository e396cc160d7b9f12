package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"qa-training-service/internal/domain"
)

// ProgressStore abstracts how learner progress is persisted (in-memory,
// postgres behind a redis shadow cache, etc).
type ProgressStore interface {
	GetProgress(ctx context.Context, username, quizName string) (domain.Progress, bool, error)
	SaveProgress(ctx context.Context, username string, progress domain.Progress) error
}

// CatalogRepository loads scenario tables (from cache/backing store).
type CatalogRepository interface {
	GetQuiz(ctx context.Context, name string) (domain.Quiz, error)
}

// QuizEngine drives learners through any scenario table. One engine serves
// every quiz subject; the subjects differ only in the data the catalog returns.
type QuizEngine struct {
	catalog  CatalogRepository
	store    ProgressStore
	selector *ScenarioSelector
	logger   *zap.Logger
	now      func() time.Time
}

func NewQuizEngine(catalog CatalogRepository, store ProgressStore, logger *zap.Logger) *QuizEngine {
	return &QuizEngine{
		catalog:  catalog,
		store:    store,
		selector: NewScenarioSelector(),
		logger:   logger,
		now:      time.Now,
	}
}

// NewQuizEngineWithClock is test-only for deterministic timestamps and shuffles.
func NewQuizEngineWithClock(catalog CatalogRepository, store ProgressStore, logger *zap.Logger, now func() time.Time, selector *ScenarioSelector) *QuizEngine {
	e := NewQuizEngine(catalog, store, logger)
	e.now = now
	e.selector = selector
	return e
}

// Start resumes or begins a play-through for one learner. A terminal stored
// status resumes straight to the end state; randomized scenario sets recorded
// under other quiz names are discarded before play.
func (e *QuizEngine) Start(ctx context.Context, quizName, username string) (*PlaySession, error) {
	if username == "" {
		return nil, domain.ErrNoLearner
	}

	quiz, err := e.catalog.GetQuiz(ctx, quizName)
	if err != nil {
		return nil, err
	}

	progress, found, err := e.store.GetProgress(ctx, username, quizName)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		progress = domain.NewProgress(quizName)
	}
	if progress.RandomizedSets == nil {
		progress.RandomizedSets = make(map[domain.Level]domain.ScenarioSet)
	}
	for level, set := range progress.RandomizedSets {
		if set.QuizName != quizName {
			delete(progress.RandomizedSets, level)
		}
	}

	return &PlaySession{
		engine:    e,
		quiz:      quiz,
		username:  username,
		progress:  progress,
		levelSubs: make(map[chan domain.Level]struct{}),
	}, nil
}

// AnswerFeedback is returned to the presentation layer right after a submission.
type AnswerFeedback struct {
	Outcome     string `json:"outcome"`
	Correct     bool   `json:"correct"`
	Awarded     int    `json:"awarded"`
	Experience  int    `json:"experience"`
	ToolAwarded string `json:"toolAwarded,omitempty"`
	Completed   bool   `json:"completed"`
	// SaveFailed reports a best-effort persistence failure; the answer is
	// still recorded in memory and will be saved at the next natural point.
	SaveFailed bool `json:"saveFailed,omitempty"`
}

// PlaySession owns one learner's progress in one quiz. All mutation happens
// through its methods in response to discrete events; it is the single writer
// of its progress record.
type PlaySession struct {
	engine   *QuizEngine
	quiz     domain.Quiz
	username string

	mu        sync.Mutex
	progress  domain.Progress
	levelSubs map[chan domain.Level]struct{}
}

// Quiz returns the scenario table the session plays.
func (s *PlaySession) Quiz() domain.Quiz { return s.quiz }

// Progress returns a snapshot of the current state.
func (s *PlaySession) Progress() domain.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Completed reports whether the play-through reached a terminal status.
func (s *PlaySession) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Status.Terminal()
}

// CurrentLevel is the tier implied by how many questions have been answered.
func (s *PlaySession) CurrentLevel() domain.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.LevelForHistoryLength(len(s.progress.History))
}

// CurrentScenario selects the next scenario purely from history length:
// tier by threshold, slot by position within the tier, scenario from the
// tier's cached permutation.
func (s *PlaySession) CurrentScenario() (domain.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentScenarioLocked()
}

func (s *PlaySession) currentScenarioLocked() (domain.Scenario, error) {
	answered := len(s.progress.History)
	if answered >= domain.TotalQuestions || s.progress.Status.Terminal() {
		return domain.Scenario{}, domain.ErrQuizComplete
	}
	level := domain.LevelForHistoryLength(answered)
	order, err := s.engine.selector.GetOrCreate(&s.progress, s.quiz, level)
	if err != nil {
		return domain.Scenario{}, err
	}
	slot := answered % domain.QuestionsPerLevel
	if slot >= len(order) {
		return domain.Scenario{}, domain.ErrScenarioNotFound
	}
	return order[slot], nil
}

// SubmitAnswer records a pick by its index into the scenario's ORIGINAL
// option order (any display shuffling is the presentation layer's business).
// Persistence is best-effort: on save failure the in-memory answer stands
// and the feedback carries a recoverable warning.
func (s *PlaySession) SubmitAnswer(ctx context.Context, optionIndex int, timeSpentMs *int64, timedOut bool) (AnswerFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenario, err := s.currentScenarioLocked()
	if err != nil {
		return AnswerFeedback{}, err
	}
	if optionIndex < 0 || optionIndex >= len(scenario.Options) {
		return AnswerFeedback{}, domain.ErrInvalidOption
	}

	correct := optionIndex == scenario.CorrectOptionIndex()
	selected := scenario.Options[optionIndex]
	selected.Correct = &correct

	s.progress.AddExperience(selected.Experience, s.quiz.MaxXP)
	if correct {
		s.progress.AddTool(selected.Tool)
	}

	before := domain.LevelForHistoryLength(len(s.progress.History))
	s.progress.History = append(s.progress.History, domain.AnsweredQuestion{
		Scenario:    scenario,
		Selected:    selected,
		OptionIndex: optionIndex,
		Correct:     correct,
		TimeSpentMs: timeSpentMs,
		TimedOut:    timedOut,
	})
	s.progress.CurrentScenarioIndex++

	feedback := AnswerFeedback{
		Outcome:    selected.Outcome,
		Correct:    correct,
		Awarded:    selected.Experience,
		Experience: s.progress.Experience,
	}
	if correct {
		feedback.ToolAwarded = selected.Tool
	}

	if len(s.progress.History) >= domain.TotalQuestions {
		s.finalizeLocked()
		feedback.Completed = true
	} else if after := domain.LevelForHistoryLength(len(s.progress.History)); after != before {
		s.notifyLevelLocked(after)
	}

	if err := s.saveLocked(ctx); err != nil {
		s.engine.logger.Warn("progress save failed, keeping in-memory state",
			zap.String("user", s.username),
			zap.String("quiz", s.quiz.Name),
			zap.Error(err))
		feedback.SaveFailed = true
	}
	return feedback, nil
}

// Finalize computes the final score and status from history. Idempotent:
// repeated calls with unchanged history yield the same result.
func (s *PlaySession) Finalize(ctx context.Context) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeLocked()
	if err := s.saveLocked(ctx); err != nil {
		return s.progress, fmt.Errorf("save final progress: %w", err)
	}
	return s.progress, nil
}

// Fail ends the play-through as failed regardless of the answer history.
// Used when scenario data turns out malformed mid-quiz: the learner cannot
// reach the remaining questions, so the attempt must not grade as a pass.
func (s *PlaySession) Fail(ctx context.Context) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeLocked()
	s.progress.Status = domain.StatusFailed
	if err := s.saveLocked(ctx); err != nil {
		return s.progress, fmt.Errorf("save final progress: %w", err)
	}
	return s.progress, nil
}

func (s *PlaySession) finalizeLocked() {
	answered := len(s.progress.History)
	if answered > domain.TotalQuestions {
		answered = domain.TotalQuestions
	}
	score := 0
	if answered > 0 {
		score = int(math.Round(100 * float64(s.progress.CorrectCount()) / float64(answered)))
	}
	s.progress.ScorePercentage = score
	if score >= s.quiz.PassPercent {
		s.progress.Status = domain.StatusPassed
	} else {
		s.progress.Status = domain.StatusFailed
	}
}

// Restart discards all progress, including this quiz's cached permutations.
func (s *PlaySession) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = domain.NewProgress(s.quiz.Name)
	return s.saveLocked(ctx)
}

func (s *PlaySession) saveLocked(ctx context.Context) error {
	s.progress.UpdatedAt = s.engine.now()
	return s.engine.store.SaveProgress(ctx, s.username, s.progress)
}

// SubscribeLevels returns a channel that receives an event when play crosses
// into a new tier. Purely observational; scoring ignores it. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *PlaySession) SubscribeLevels() (<-chan domain.Level, func()) {
	ch := make(chan domain.Level, 2)
	s.mu.Lock()
	s.levelSubs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.levelSubs[ch]; ok {
			delete(s.levelSubs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *PlaySession) notifyLevelLocked(level domain.Level) {
	for ch := range s.levelSubs {
		select {
		case ch <- level:
		default:
			// Drop the stale event rather than block the submit path.
			select {
			case <-ch:
			default:
			}
			ch <- level
		}
	}
}
