package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"qa-training-service/internal/domain"
)

// Store is the pgx-backed persistence service: scenario tables, learner
// progress, user records, and auto-reset settings.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// LoadQuiz reads a scenario table stored as JSONB.
func (s *Store) LoadQuiz(ctx context.Context, name string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// SaveQuiz upserts a scenario table (used by seeding and admin guide edits).
func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (name, data) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data`,
		quiz.Name, raw)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *Store) GetProgress(ctx context.Context, username, quizName string) (domain.Progress, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM quiz_progress WHERE username=$1 AND quiz_name=$2`,
		username, quizName).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("get progress: %w", err)
	}
	var progress domain.Progress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return domain.Progress{}, false, fmt.Errorf("unmarshal progress: %w", err)
	}
	return progress, true, nil
}

func (s *Store) SaveProgress(ctx context.Context, username string, progress domain.Progress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_progress (username, quiz_name, data, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username, quiz_name)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		username, progress.QuizName, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *Store) ResetProgress(ctx context.Context, username, quizName string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM quiz_progress WHERE username=$1 AND quiz_name=$2`,
		username, quizName)
	if err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

// ListUsers returns every account with its lightweight per-quiz result
// summaries derived from stored progress, so callers can partition users by
// completion without fetching full progress records.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username, user_type, allowed_quizzes, hidden_quizzes FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	index := make(map[string]int)
	for rows.Next() {
		var u domain.User
		var allowed, hidden []byte
		if err := rows.Scan(&u.Username, &u.UserType, &allowed, &hidden); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if len(allowed) > 0 {
			_ = json.Unmarshal(allowed, &u.AllowedQuizzes)
		}
		if len(hidden) > 0 {
			_ = json.Unmarshal(hidden, &u.HiddenQuizzes)
		}
		index[u.Username] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	summaries, err := s.pool.Query(ctx,
		`SELECT username, quiz_name,
		        jsonb_array_length(COALESCE(data->'questionHistory', '[]'::jsonb)),
		        COALESCE((data->>'scorePercentage')::int, 0),
		        COALESCE(data->>'status', '')
		 FROM quiz_progress`)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	defer summaries.Close()

	for summaries.Next() {
		var username string
		var result domain.QuizResult
		var status string
		if err := summaries.Scan(&username, &result.QuizName, &result.QuestionsAnswered, &result.Score, &status); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		result.Status = domain.Status(status)
		if i, ok := index[username]; ok {
			users[i].QuizResults = append(users[i].QuizResults, result)
		}
	}
	if err := summaries.Err(); err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	var allowed, hidden []byte
	err := s.pool.QueryRow(ctx,
		`SELECT username, user_type, allowed_quizzes, hidden_quizzes FROM users WHERE username=$1`,
		username).Scan(&u.Username, &u.UserType, &allowed, &hidden)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if len(allowed) > 0 {
		_ = json.Unmarshal(allowed, &u.AllowedQuizzes)
	}
	if len(hidden) > 0 {
		_ = json.Unmarshal(hidden, &u.HiddenQuizzes)
	}
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	allowed, _ := json.Marshal(user.AllowedQuizzes)
	hidden, _ := json.Marshal(user.HiddenQuizzes)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, user_type, allowed_quizzes, hidden_quizzes)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username)
		 DO UPDATE SET user_type = EXCLUDED.user_type,
		               allowed_quizzes = EXCLUDED.allowed_quizzes,
		               hidden_quizzes = EXCLUDED.hidden_quizzes`,
		user.Username, user.UserType, allowed, hidden)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_progress WHERE username=$1`, username); err != nil {
		return fmt.Errorf("delete user progress: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE username=$1`, username); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *Store) ListAutoResetSettings(ctx context.Context) ([]domain.AutoResetSetting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT quiz_name, reset_period, enabled, last_reset, next_reset
		 FROM auto_reset_settings ORDER BY quiz_name`)
	if err != nil {
		return nil, fmt.Errorf("list auto-reset settings: %w", err)
	}
	defer rows.Close()

	var out []domain.AutoResetSetting
	for rows.Next() {
		var setting domain.AutoResetSetting
		if err := rows.Scan(&setting.QuizName, &setting.ResetPeriod, &setting.Enabled, &setting.LastReset, &setting.NextResetTime); err != nil {
			return nil, fmt.Errorf("scan auto-reset setting: %w", err)
		}
		out = append(out, setting)
	}
	return out, rows.Err()
}

func (s *Store) GetAutoResetSetting(ctx context.Context, quizName string) (domain.AutoResetSetting, error) {
	var setting domain.AutoResetSetting
	err := s.pool.QueryRow(ctx,
		`SELECT quiz_name, reset_period, enabled, last_reset, next_reset
		 FROM auto_reset_settings WHERE quiz_name=$1`,
		quizName).Scan(&setting.QuizName, &setting.ResetPeriod, &setting.Enabled, &setting.LastReset, &setting.NextResetTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AutoResetSetting{}, domain.ErrSettingNotFound
	}
	if err != nil {
		return domain.AutoResetSetting{}, fmt.Errorf("get auto-reset setting: %w", err)
	}
	return setting, nil
}

func (s *Store) SaveAutoResetSetting(ctx context.Context, setting domain.AutoResetSetting) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO auto_reset_settings (quiz_name, reset_period, enabled, last_reset, next_reset)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (quiz_name)
		 DO UPDATE SET reset_period = EXCLUDED.reset_period,
		               enabled = EXCLUDED.enabled,
		               last_reset = EXCLUDED.last_reset,
		               next_reset = EXCLUDED.next_reset`,
		setting.QuizName, setting.ResetPeriod, setting.Enabled, setting.LastReset, setting.NextResetTime)
	if err != nil {
		return fmt.Errorf("save auto-reset setting: %w", err)
	}
	return nil
}

func (s *Store) DeleteAutoResetSetting(ctx context.Context, quizName string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM auto_reset_settings WHERE quiz_name=$1`, quizName)
	if err != nil {
		return fmt.Errorf("delete auto-reset setting: %w", err)
	}
	return nil
}
