package memory

import (
	"context"
	"sort"
	"sync"

	"qa-training-service/internal/domain"
)

// Store is an in-memory persistence service: learner progress, user records,
// and auto-reset settings. It backs tests and the demo mode when no postgres
// is configured.
type Store struct {
	mu       sync.RWMutex
	progress map[string]map[string]domain.Progress // username -> quizName -> progress
	users    map[string]domain.User
	settings map[string]domain.AutoResetSetting
}

func NewStore() *Store {
	return &Store{
		progress: make(map[string]map[string]domain.Progress),
		users:    make(map[string]domain.User),
		settings: make(map[string]domain.AutoResetSetting),
	}
}

func (s *Store) GetProgress(_ context.Context, username, quizName string) (domain.Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byQuiz, ok := s.progress[username]
	if !ok {
		return domain.Progress{}, false, nil
	}
	p, ok := byQuiz[quizName]
	return p, ok, nil
}

func (s *Store) SaveProgress(_ context.Context, username string, progress domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byQuiz, ok := s.progress[username]
	if !ok {
		byQuiz = make(map[string]domain.Progress)
		s.progress[username] = byQuiz
	}
	byQuiz[progress.QuizName] = progress
	s.syncResultLocked(username, progress)
	return nil
}

func (s *Store) ResetProgress(_ context.Context, username, quizName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byQuiz, ok := s.progress[username]; ok {
		delete(byQuiz, quizName)
	}
	if u, ok := s.users[username]; ok {
		kept := u.QuizResults[:0]
		for _, r := range u.QuizResults {
			if r.QuizName != quizName {
				kept = append(kept, r)
			}
		}
		u.QuizResults = kept
		s.users[username] = u
	}
	return nil
}

// syncResultLocked keeps the lightweight completion summary on the user
// record in step with saved progress, so the scheduler's first-phase check
// sees fresh data.
func (s *Store) syncResultLocked(username string, progress domain.Progress) {
	u, ok := s.users[username]
	if !ok {
		u = domain.User{Username: username, UserType: "learner"}
	}
	result := domain.QuizResult{
		QuizName:          progress.QuizName,
		QuestionsAnswered: len(progress.History),
		Score:             progress.ScorePercentage,
		Status:            progress.Status,
	}
	replaced := false
	for i, r := range u.QuizResults {
		if r.QuizName == progress.QuizName {
			u.QuizResults[i] = result
			replaced = true
			break
		}
	}
	if !replaced {
		u.QuizResults = append(u.QuizResults, result)
	}
	s.users[username] = u
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) GetUser(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) SaveUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
	delete(s.progress, username)
	return nil
}

func (s *Store) ListAutoResetSettings(_ context.Context) ([]domain.AutoResetSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AutoResetSetting, 0, len(s.settings))
	for _, setting := range s.settings {
		out = append(out, setting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizName < out[j].QuizName })
	return out, nil
}

func (s *Store) GetAutoResetSetting(_ context.Context, quizName string) (domain.AutoResetSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[quizName]
	if !ok {
		return domain.AutoResetSetting{}, domain.ErrSettingNotFound
	}
	return setting, nil
}

func (s *Store) SaveAutoResetSetting(_ context.Context, setting domain.AutoResetSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[setting.QuizName] = setting
	return nil
}

func (s *Store) DeleteAutoResetSetting(_ context.Context, quizName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, quizName)
	return nil
}
