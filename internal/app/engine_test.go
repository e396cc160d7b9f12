package app_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"qa-training-service/internal/app"
	"qa-training-service/internal/domain"
	"qa-training-service/internal/infra/memory"
)

func TestStartRequiresLearner(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	if _, err := engine.Start(ctx, "test-quiz", ""); !errors.Is(err, domain.ErrNoLearner) {
		t.Fatalf("expected ErrNoLearner, got %v", err)
	}
}

func TestStartUnknownQuiz(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	if _, err := engine.Start(ctx, "no-such-quiz", "alice"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestAllCorrectPlayThrough(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	session, err := engine.Start(ctx, "test-quiz", "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var last app.AnswerFeedback
	for i := 0; i < domain.TotalQuestions; i++ {
		sc, err := session.CurrentScenario()
		if err != nil {
			t.Fatalf("scenario %d: %v", i, err)
		}
		last, err = session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if !last.Completed {
		t.Fatalf("expected completion on question %d", domain.TotalQuestions)
	}
	progress := session.Progress()
	if progress.Status != domain.StatusPassed {
		t.Fatalf("expected passed, got %s", progress.Status)
	}
	if progress.ScorePercentage != 100 {
		t.Fatalf("expected score 100, got %d", progress.ScorePercentage)
	}
	// 15 correct answers at +20 each overshoot the cap.
	if progress.Experience != domain.MaxExperience {
		t.Fatalf("expected xp clamped to %d, got %d", domain.MaxExperience, progress.Experience)
	}
}

func TestAllWrongPlayThrough(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	session, err := engine.Start(ctx, "test-quiz", "bob")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < domain.TotalQuestions; i++ {
		sc, err := session.CurrentScenario()
		if err != nil {
			t.Fatalf("scenario %d: %v", i, err)
		}
		wrong := (sc.CorrectOptionIndex() + 1) % len(sc.Options)
		if _, err := session.SubmitAnswer(ctx, wrong, nil, false); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	progress := session.Progress()
	if progress.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", progress.Status)
	}
	if progress.ScorePercentage != 0 {
		t.Fatalf("expected score 0, got %d", progress.ScorePercentage)
	}
	if progress.Experience != 0 {
		t.Fatalf("expected xp clamped to 0, got %d", progress.Experience)
	}
	if len(progress.Tools) != 0 {
		t.Fatalf("expected no tools for wrong answers, got %v", progress.Tools)
	}
}

func TestNoRepeatWithinLevel(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	session, err := engine.Start(ctx, "test-quiz", "carol")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	seen := make(map[int]bool)
	for i := 0; i < domain.QuestionsPerLevel; i++ {
		sc, err := session.CurrentScenario()
		if err != nil {
			t.Fatalf("scenario %d: %v", i, err)
		}
		if seen[sc.ID] {
			t.Fatalf("scenario %d repeated within the basic level", sc.ID)
		}
		seen[sc.ID] = true
		if sc.Level != domain.LevelBasic {
			t.Fatalf("expected basic level for question %d, got %s", i, sc.Level)
		}
		if _, err := session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	sc, err := session.CurrentScenario()
	if err != nil {
		t.Fatalf("sixth scenario: %v", err)
	}
	if sc.Level != domain.LevelIntermediate {
		t.Fatalf("expected intermediate after 5 answers, got %s", sc.Level)
	}
}

func TestLevelUpNotifications(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	session, err := engine.Start(ctx, "test-quiz", "dave")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	levels, cancel := session.SubscribeLevels()
	defer cancel()

	for i := 0; i < 10; i++ {
		sc, err := session.CurrentScenario()
		if err != nil {
			t.Fatalf("scenario %d: %v", i, err)
		}
		if _, err := session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if got := <-levels; got != domain.LevelIntermediate {
		t.Fatalf("expected intermediate event, got %s", got)
	}
	if got := <-levels; got != domain.LevelAdvanced {
		t.Fatalf("expected advanced event, got %s", got)
	}
}

func TestInvalidOptionIndex(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	session, err := engine.Start(ctx, "test-quiz", "erin")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.SubmitAnswer(ctx, -1, nil, false); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption for -1, got %v", err)
	}
	if _, err := session.SubmitAnswer(ctx, 99, nil, false); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption for 99, got %v", err)
	}
	if got := len(session.Progress().History); got != 0 {
		t.Fatalf("rejected answers must not enter history, got %d entries", got)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	session, err := engine.Start(ctx, "test-quiz", "frank")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < domain.TotalQuestions; i++ {
		sc, _ := session.CurrentScenario()
		if _, err := session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	first, err := session.Finalize(ctx)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	second, err := session.Finalize(ctx)
	if err != nil {
		t.Fatalf("finalize again: %v", err)
	}
	if first.ScorePercentage != second.ScorePercentage || first.Status != second.Status {
		t.Fatalf("finalize not idempotent: %d/%s vs %d/%s",
			first.ScorePercentage, first.Status, second.ScorePercentage, second.Status)
	}
}

func TestTerminalProgressResumesCompleted(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	done := domain.NewProgress("test-quiz")
	done.Status = domain.StatusPassed
	done.ScorePercentage = 80
	if err := store.SaveProgress(ctx, "grace", done); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	session, err := engine.Start(ctx, "test-quiz", "grace")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !session.Completed() {
		t.Fatalf("expected terminal progress to resume completed")
	}
	if _, err := session.CurrentScenario(); !errors.Is(err, domain.ErrQuizComplete) {
		t.Fatalf("expected ErrQuizComplete, got %v", err)
	}
	if _, err := session.SubmitAnswer(ctx, 0, nil, false); !errors.Is(err, domain.ErrQuizComplete) {
		t.Fatalf("expected submit rejected after completion, got %v", err)
	}
}

func TestRestartClearsProgress(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	session, err := engine.Start(ctx, "test-quiz", "heidi")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		sc, _ := session.CurrentScenario()
		if _, err := session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if err := session.Restart(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	progress := session.Progress()
	if len(progress.History) != 0 || progress.Experience != 0 || progress.Status != domain.StatusInProgress {
		t.Fatalf("expected fresh progress after restart, got %+v", progress)
	}
	if len(progress.RandomizedSets) != 0 {
		t.Fatalf("expected cached permutations discarded on restart, got %v", progress.RandomizedSets)
	}
}

func TestSaveFailureKeepsAnswer(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.NewStore()}
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(map[string]domain.Quiz{
		"test-quiz": testQuiz(),
	}), time.Minute)
	engine := app.NewQuizEngineWithClock(catalog, store, zap.NewNop(),
		func() time.Time { return time.Unix(1700000000, 0) },
		app.NewScenarioSelectorWithRand(rand.New(rand.NewSource(1))))

	session, err := engine.Start(ctx, "test-quiz", "ivan")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	store.fail = true
	sc, _ := session.CurrentScenario()
	feedback, err := session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false)
	if err != nil {
		t.Fatalf("submit must not fail on save error: %v", err)
	}
	if !feedback.SaveFailed {
		t.Fatalf("expected SaveFailed warning")
	}
	if got := len(session.Progress().History); got != 1 {
		t.Fatalf("expected answer kept in memory, history=%d", got)
	}

	// The next successful save carries the full state.
	store.fail = false
	sc, _ = session.CurrentScenario()
	if _, err := session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	saved, found, err := store.Store.GetProgress(ctx, "ivan", "test-quiz")
	if err != nil || !found {
		t.Fatalf("expected saved progress, found=%v err=%v", found, err)
	}
	if len(saved.History) != 2 {
		t.Fatalf("expected both answers persisted, got %d", len(saved.History))
	}
}

func TestForeignQuizSetsPrunedOnStart(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	seeded := domain.NewProgress("test-quiz")
	seeded.RandomizedSets[domain.LevelBasic] = domain.ScenarioSet{QuizName: "other-quiz", IDs: []int{901, 902, 903, 904, 905}}
	if err := store.SaveProgress(ctx, "judy", seeded); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	session, err := engine.Start(ctx, "test-quiz", "judy")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sc, err := session.CurrentScenario()
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	if sc.ID >= 900 {
		t.Fatalf("foreign quiz set leaked into selection, got scenario %d", sc.ID)
	}
	if set := session.Progress().RandomizedSets[domain.LevelBasic]; set.QuizName != "test-quiz" {
		t.Fatalf("expected reshuffled set owned by test-quiz, got %q", set.QuizName)
	}
}

func TestMalformedPoolFailsAttempt(t *testing.T) {
	ctx := context.Background()
	// A catalog stub sidesteps load-time validation, the way a table edit
	// behind a warm cache would: the advanced pool is gone mid-quiz.
	broken := testQuiz()
	delete(broken.Pools, domain.LevelAdvanced)
	store := memory.NewStore()
	engine := app.NewQuizEngineWithClock(stubCatalog{quiz: broken}, store, zap.NewNop(),
		func() time.Time { return time.Unix(1700000000, 0) },
		app.NewScenarioSelectorWithRand(rand.New(rand.NewSource(1))))

	session, err := engine.Start(ctx, "test-quiz", "mallory")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 10; i++ {
		sc, err := session.CurrentScenario()
		if err != nil {
			t.Fatalf("scenario %d: %v", i, err)
		}
		if _, err := session.SubmitAnswer(ctx, sc.CorrectOptionIndex(), nil, false); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if _, err := session.CurrentScenario(); !errors.Is(err, domain.ErrScenarioNotFound) {
		t.Fatalf("expected ErrScenarioNotFound on missing pool, got %v", err)
	}

	// A perfect partial history must still end failed, not passed.
	progress, err := session.Fail(ctx)
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if progress.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", progress.Status)
	}
	if progress.ScorePercentage != 100 {
		t.Fatalf("expected history still graded at 100, got %d", progress.ScorePercentage)
	}

	saved, found, err := store.GetProgress(ctx, "mallory", "test-quiz")
	if err != nil || !found {
		t.Fatalf("expected persisted progress, found=%v err=%v", found, err)
	}
	if saved.Status != domain.StatusFailed {
		t.Fatalf("expected failed status persisted, got %s", saved.Status)
	}
}

type stubCatalog struct {
	quiz domain.Quiz
}

func (c stubCatalog) GetQuiz(_ context.Context, name string) (domain.Quiz, error) {
	if name != c.quiz.Name {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return c.quiz, nil
}

type flakyStore struct {
	*memory.Store
	fail bool
}

func (s *flakyStore) SaveProgress(ctx context.Context, username string, progress domain.Progress) error {
	if s.fail {
		return errors.New("backend unavailable")
	}
	return s.Store.SaveProgress(ctx, username, progress)
}

func newTestEngine(t *testing.T) (*app.QuizEngine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(map[string]domain.Quiz{
		"test-quiz": testQuiz(),
	}), time.Minute)
	engine := app.NewQuizEngineWithClock(catalog, store, zap.NewNop(),
		func() time.Time { return time.Unix(1700000000, 0) },
		app.NewScenarioSelectorWithRand(rand.New(rand.NewSource(1))))
	return engine, store
}

// testQuiz builds a deterministic three-option table: option layout rotates
// per scenario so tests cannot pass by always picking the same index.
func testQuiz() domain.Quiz {
	q := domain.Quiz{
		Name:        "test-quiz",
		Title:       "Test Quiz",
		MaxXP:       domain.MaxExperience,
		PassPercent: domain.PassPercent,
		Pools:       make(map[domain.Level][]domain.Scenario),
	}
	id := 0
	for _, level := range domain.Levels() {
		pool := make([]domain.Scenario, 0, domain.QuestionsPerLevel)
		for i := 0; i < domain.QuestionsPerLevel; i++ {
			id++
			options := []domain.Option{
				{Text: "bad", Outcome: "that made it worse", Experience: -10},
				{Text: "meh", Outcome: "nothing happened", Experience: 0},
				{Text: "good", Outcome: "that worked", Experience: 25, Tool: "Tool A"},
			}
			// Rotate so the correct option lands on a different index each time.
			rot := id % len(options)
			rotated := append(append([]domain.Option{}, options[rot:]...), options[:rot]...)
			pool = append(pool, domain.Scenario{
				ID:          id,
				Level:       level,
				Title:       "scenario",
				Description: "pick the best move",
				Options:     rotated,
			})
		}
		q.Pools[level] = pool
	}
	return q
}
