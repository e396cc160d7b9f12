package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"qa-training-service/internal/domain"
)

func TestCatalogCachesInRedis(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{quizzes: map[string]domain.Quiz{"q1": validTestQuiz("q1")}}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuiz(ctx, "q1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second read is served from redis.
	if _, err := repo.GetQuiz(ctx, "q1"); err != nil {
		t.Fatalf("get quiz again: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if !mr.Exists("quiz:q1:catalog") {
		t.Fatalf("expected catalog key in redis")
	}
}

func TestCatalogReloadsOnCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("quiz:q1:catalog", "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	loader := &countingLoader{quizzes: map[string]domain.Quiz{"q1": validTestQuiz("q1")}}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute)

	quiz, err := repo.GetQuiz(ctx, "q1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Name != "q1" || loader.calls != 1 {
		t.Fatalf("expected reload past corrupt entry, quiz=%q calls=%d", quiz.Name, loader.calls)
	}
}

func TestCatalogRejectsInvalidTable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	broken := validTestQuiz("q1")
	broken.Pools[domain.LevelBasic][0].Options[0].Experience = broken.Pools[domain.LevelBasic][0].Options[1].Experience
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"q1": broken}}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuiz(ctx, "q1"); err == nil {
		t.Fatalf("expected validation error")
	}
	if mr.Exists("quiz:q1:catalog") {
		t.Fatalf("invalid table must not be cached")
	}
}

type countingLoader struct {
	quizzes map[string]domain.Quiz
	calls   int
}

func (l *countingLoader) LoadQuiz(_ context.Context, name string) (domain.Quiz, error) {
	l.calls++
	if quiz, ok := l.quizzes[name]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func validTestQuiz(name string) domain.Quiz {
	q := domain.Quiz{Name: name, MaxXP: domain.MaxExperience, PassPercent: domain.PassPercent, Pools: make(map[domain.Level][]domain.Scenario)}
	id := 0
	for _, level := range domain.Levels() {
		pool := make([]domain.Scenario, 0, domain.QuestionsPerLevel)
		for i := 0; i < domain.QuestionsPerLevel; i++ {
			id++
			pool = append(pool, domain.Scenario{
				ID:    id,
				Level: level,
				Title: "scenario",
				Options: []domain.Option{
					{Text: "worse", Experience: -10},
					{Text: "better", Experience: 20},
				},
			})
		}
		q.Pools[level] = pool
	}
	return q
}
