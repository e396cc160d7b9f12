package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"qa-training-service/internal/domain"
)

// CatalogLoader fetches scenario tables from a backing store.
type CatalogLoader interface {
	LoadQuiz(ctx context.Context, name string) (domain.Quiz, error)
}

// CatalogRepository caches scenario tables with TTL to avoid repeated loads.
// Concurrent misses for the same table collapse into one load.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]catalogEntry
}

type catalogEntry struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]catalogEntry),
	}
}

func (r *CatalogRepository) GetQuiz(ctx context.Context, name string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(name); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have filled the
		// entry between our miss and winning the flight.
		if quiz, ok := r.lookup(name); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, name)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := domain.ValidateQuiz(quiz); err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[name] = catalogEntry{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *CatalogRepository) lookup(name string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[name]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// Stagger expirations so every cached table does not reload in the
	// same tick after a restart.
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader serves scenario tables from an in-memory map (tests/demo mode).
type StaticCatalogLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticCatalogLoader(quizzes map[string]domain.Quiz) *StaticCatalogLoader {
	return &StaticCatalogLoader{quizzes: quizzes}
}

func (l *StaticCatalogLoader) LoadQuiz(_ context.Context, name string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[name]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
