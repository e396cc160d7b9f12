package app

import (
	"math/rand"
	"time"

	"qa-training-service/internal/domain"
)

// ScenarioSelector produces a stable permutation of a level's scenario pool.
// The permutation is computed at most once per (quiz, level) per play-through
// and cached in the progress record, so resuming never reshuffles questions
// the learner already saw.
type ScenarioSelector struct {
	rng *rand.Rand
}

func NewScenarioSelector() *ScenarioSelector {
	return &ScenarioSelector{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewScenarioSelectorWithRand is test-only for deterministic shuffles.
func NewScenarioSelectorWithRand(rng *rand.Rand) *ScenarioSelector {
	return &ScenarioSelector{rng: rng}
}

// GetOrCreate returns the level's cached ordering when one exists for this
// quiz name, resolving ids against the pool (the legacy full-object form is
// handled during decoding). Otherwise it shuffles the pool, caches the ids on
// the progress record, and returns the new ordering. Sets recorded under a
// different quiz name never match; stale ids force a reshuffle.
func (s *ScenarioSelector) GetOrCreate(progress *domain.Progress, quiz domain.Quiz, level domain.Level) ([]domain.Scenario, error) {
	pool := quiz.Pool(level)
	if len(pool) < domain.QuestionsPerLevel {
		return nil, domain.ErrScenarioNotFound
	}

	if progress.RandomizedSets == nil {
		progress.RandomizedSets = make(map[domain.Level]domain.ScenarioSet)
	}
	if set, ok := progress.RandomizedSets[level]; ok && set.QuizName == quiz.Name {
		if order, err := set.Resolve(pool); err == nil && len(order) >= domain.QuestionsPerLevel {
			return order, nil
		}
	}

	order := s.shuffled(pool)
	ids := make([]int, len(order))
	for i, sc := range order {
		ids[i] = sc.ID
	}
	progress.RandomizedSets[level] = domain.ScenarioSet{QuizName: quiz.Name, IDs: ids}
	return order, nil
}

// shuffled returns a Fisher-Yates shuffled copy of the pool.
func (s *ScenarioSelector) shuffled(pool []domain.Scenario) []domain.Scenario {
	out := append([]domain.Scenario(nil), pool...)
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
